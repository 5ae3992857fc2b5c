package compressor

import "fmt"

// Validate checks the parameters used by the given media kind.
// Static images only use Quality.
func (p Params) Validate(kind MediaKind) error {
	if err := validateQuality(p.Quality); err != nil {
		return err
	}
	if kind != KindAnimated {
		return nil
	}
	if p.FrameStride < 1 {
		return invalidParam("validate", fmt.Sprintf("frame stride must be >= 1, got %d", p.FrameStride))
	}
	if p.FrameIntervalMs < 1 {
		return invalidParam("validate", fmt.Sprintf("frame interval must be >= 1ms, got %d", p.FrameIntervalMs))
	}
	return nil
}

func validateQuality(q int) error {
	if q < MinQuality || q > MaxQuality {
		return invalidParam("validate", fmt.Sprintf("quality must be in [%d,%d], got %d", MinQuality, MaxQuality, q))
	}
	return nil
}

// PaletteSize maps quality to the number of colours per animation frame:
// 2 at quality 1 up to 256 at quality 100.
func PaletteSize(quality int) int {
	if quality < MinQuality {
		quality = MinQuality
	}
	if quality > MaxQuality {
		quality = MaxQuality
	}
	return 2 + (254*(quality-MinQuality))/(MaxQuality-MinQuality)
}

// ditherThreshold is the lowest quality at which animation frames are dithered.
const ditherThreshold = 75

// delayCentiseconds converts a frame interval to the GIF delay unit.
func delayCentiseconds(ms int) int {
	return max((ms+5)/10, 1)
}
