package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

func TestNewState(t *testing.T) {
	s, err := NewState(4)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Page())
	assert.Equal(t, 4, s.TotalPages())
	assert.Equal(t, DefaultZoom, s.Zoom())
	assert.Equal(t, ViewDesktop, s.ViewMode())
	assert.Equal(t, LayoutPaginated, s.Layout())

	_, err = NewState(0)
	assert.ErrorIs(t, err, ErrNoPages)

	_, err = NewState(2, WithDefaultZoom(1.1))
	assert.Error(t, err)

	s, err = NewState(2, WithDefaultZoom(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1.5, s.Zoom())
}

func TestGoToPage_Clamps(t *testing.T) {
	s, err := NewState(5)
	require.NoError(t, err)

	tests := []struct {
		name string
		to   int
		want int
	}{
		{"zero", 0, 1},
		{"negative", -3, 1},
		{"in_range", 3, 3},
		{"last", 5, 5},
		{"past_end", 10, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.GoToPage(tt.to))
			assert.Equal(t, tt.want, s.Page())
		})
	}
}

func TestPageStepping(t *testing.T) {
	s, err := NewState(3)
	require.NoError(t, err)

	assert.Equal(t, 1, s.PrevPage())
	assert.Equal(t, 2, s.NextPage())
	assert.Equal(t, 3, s.NextPage())
	assert.Equal(t, 3, s.NextPage())
	assert.Equal(t, 1, s.FirstPage())
	assert.Equal(t, 3, s.LastPage())
}

func TestZoomSteps_Monotonic(t *testing.T) {
	s, err := NewState(1)
	require.NoError(t, err)

	s.SetZoom(MinScale)
	prev := s.Zoom()
	for i := 0; i < len(ZoomSteps)+3; i++ {
		next := s.ZoomIn()
		if prev < MaxScale {
			assert.Greater(t, next, prev)
		} else {
			assert.Equal(t, MaxScale, next)
		}
		prev = next
	}
	assert.Equal(t, MaxScale, s.Zoom())

	for i := 0; i < len(ZoomSteps)+3; i++ {
		next := s.ZoomOut()
		if prev > MinScale {
			assert.Less(t, next, prev)
		} else {
			assert.Equal(t, MinScale, next)
		}
		prev = next
	}
	assert.Equal(t, MinScale, s.Zoom())

	assert.Equal(t, DefaultZoom, s.ResetZoom())
	s.ZoomIn()
	s.ZoomIn()
	assert.Equal(t, DefaultZoom, s.ResetZoom())
}

func TestSetZoom_SnapsToStep(t *testing.T) {
	s, err := NewState(1)
	require.NoError(t, err)

	assert.Equal(t, 1.25, s.SetZoom(1.2))
	assert.Equal(t, 0.5, s.SetZoom(0.1))
	assert.Equal(t, 3.0, s.SetZoom(9))
}

func TestEffectiveScale_ViewMode(t *testing.T) {
	s, err := NewState(1)
	require.NoError(t, err)
	s.SetZoom(2)

	assert.InDelta(t, 2.0, s.EffectiveScale(), 1e-9)

	s.SetViewMode(ViewTablet)
	assert.InDelta(t, 1.6, s.EffectiveScale(), 1e-9)
	assert.Equal(t, 2.0, s.Zoom())

	s.SetViewMode(ViewMobile)
	assert.InDelta(t, 1.2, s.EffectiveScale(), 1e-9)
	assert.Greater(t, s.EffectiveScale(), 0.0)

	_, err = ParseViewMode("watch")
	assert.Error(t, err)
	mode, err := ParseViewMode("tablet")
	require.NoError(t, err)
	assert.Equal(t, ViewTablet, mode)
}

func TestContinuousLayout(t *testing.T) {
	letter := geometry.Size{Width: 612, Height: 792}
	s, err := NewState(3,
		WithLayout(LayoutContinuous),
		WithPageSizes([]geometry.Size{letter, letter, letter}),
	)
	require.NoError(t, err)

	assert.Equal(t, geometry.Point{}, s.PageOrigin(1))
	assert.Equal(t, geometry.Point{Y: 792 + PageGap}, s.PageOrigin(2))
	assert.Equal(t, geometry.Point{Y: 2 * (792 + PageGap)}, s.PageOrigin(3))

	assert.Equal(t, 1, s.PageAtOffset(0))
	assert.Equal(t, 2, s.PageAtOffset(900))
	assert.Equal(t, 3, s.PageAtOffset(5000))

	s.SetZoom(0.5)
	assert.Equal(t, geometry.Point{Y: 396 + PageGap}, s.PageOrigin(2))

	s.SetLayout(LayoutPaginated)
	assert.Equal(t, geometry.Point{}, s.PageOrigin(3))
	assert.Equal(t, s.Page(), s.PageAtOffset(5000))
}
