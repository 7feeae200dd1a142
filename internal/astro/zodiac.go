package astro

import (
	"math"

	"github.com/Tiliavir/astro-journal/internal/model"
)

const signWidth = 30.0

// SignFor maps an ecliptic longitude to the zodiac sign whose 30° bucket
// contains it. Aries starts at 0°.
func SignFor(longitude float64) model.ZodiacSign {
	idx := int(math.Floor(Normalize(longitude)/signWidth)) % len(model.ZodiacSigns)
	return model.ZodiacSigns[idx]
}
