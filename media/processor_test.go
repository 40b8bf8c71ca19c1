package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupportedPhoto(t *testing.T) {
	assert.True(t, IsSupportedPhoto("obra.jpg"))
	assert.True(t, IsSupportedPhoto("OBRA.JPEG"))
	assert.True(t, IsSupportedPhoto("planta.png"))
	assert.False(t, IsSupportedPhoto("foto.heic"))
	assert.False(t, IsSupportedPhoto("relatorio.pdf"))
	assert.False(t, IsSupportedPhoto("semextensao"))
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(4000, 3000, 480)
	assert.Equal(t, 480, w)
	assert.Equal(t, 360, h)

	w, h = fitWithin(1080, 1920, 480)
	assert.Equal(t, 270, w)
	assert.Equal(t, 480, h)

	// already small enough, keep dimensions
	w, h = fitWithin(320, 240, 480)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}
