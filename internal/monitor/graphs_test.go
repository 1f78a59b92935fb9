package monitor

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Force TrueColor output in tests so we can verify ANSI color codes
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestFindMinMax(t *testing.T) {
	tests := []struct {
		name          string
		data          []float64
		wantMin       float64
		wantMax       float64
		wantIsPercent bool
	}{
		{
			name:          "empty data returns percentage defaults",
			data:          []float64{},
			wantMin:       0,
			wantMax:       100,
			wantIsPercent: true,
		},
		{
			name:          "percentage data uses fixed range",
			data:          []float64{10, 50, 90},
			wantMin:       0,
			wantMax:       100,
			wantIsPercent: true,
		},
		{
			name:          "non-percentage data uses actual range",
			data:          []float64{-50, 200, 500},
			wantMin:       -50,
			wantMax:       500,
			wantIsPercent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minVal, maxVal, isPercent := findMinMax(tt.data)
			assert.Equal(t, tt.wantMin, minVal)
			assert.Equal(t, tt.wantMax, maxVal)
			assert.Equal(t, tt.wantIsPercent, isPercent)
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name   string
		val    float64
		minVal float64
		maxVal float64
		want   float64
	}{
		{name: "middle value", val: 50, minVal: 0, maxVal: 100, want: 0.5},
		{name: "min value", val: 0, minVal: 0, maxVal: 100, want: 0},
		{name: "max value", val: 100, minVal: 0, maxVal: 100, want: 1},
		{name: "equal min max returns 0.5", val: 50, minVal: 50, maxVal: 50, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.val, tt.minVal, tt.maxVal)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		name string
		val  int
		max  int
		want int
	}{
		{name: "within range", val: 5, max: 10, want: 5},
		{name: "at max", val: 10, max: 10, want: 10},
		{name: "over max", val: 15, max: 10, want: 10},
		{name: "negative clamped to zero", val: -5, max: 10, want: 0},
		{name: "zero", val: 0, max: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampInt(tt.val, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResampleData(t *testing.T) {
	tests := []struct {
		name       string
		data       []float64
		targetSize int
		wantLen    int
		wantNil    bool
	}{
		{name: "empty data returns nil", data: []float64{}, targetSize: 10, wantNil: true},
		{name: "zero target returns nil", data: []float64{1, 2, 3}, targetSize: 0, wantNil: true},
		{name: "negative target returns nil", data: []float64{1, 2, 3}, targetSize: -5, wantNil: true},
		{name: "same size returns original", data: []float64{1, 2, 3}, targetSize: 3, wantLen: 3},
		{name: "single value fills target", data: []float64{42}, targetSize: 5, wantLen: 5},
		{name: "downsampling reduces size", data: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, targetSize: 5, wantLen: 5},
		{name: "upsampling increases size", data: []float64{0, 100}, targetSize: 5, wantLen: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resampleData(tt.data, tt.targetSize)
			if tt.wantNil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.Len(t, result, tt.wantLen)
			}
		})
	}
}

func TestResampleData_DownsamplingPreservesPeaks(t *testing.T) {
	// Data with a spike in the middle
	data := []float64{10, 10, 10, 100, 10, 10, 10, 10, 10, 10}

	result := resampleData(data, 5)

	require.Len(t, result, 5)

	// The bucket containing 100 should have max=100
	hasSpike := false
	for _, v := range result {
		if v == 100 {
			hasSpike = true
			break
		}
	}
	assert.True(t, hasSpike, "downsampling should preserve peak values")
}

func TestResampleData_UpsamplingInterpolates(t *testing.T) {
	data := []float64{0, 100}
	result := resampleData(data, 5)

	require.Len(t, result, 5)

	// Should interpolate: 0, 25, 50, 75, 100
	assert.InDelta(t, 0, result[0], 0.1)
	assert.InDelta(t, 25, result[1], 0.1)
	assert.InDelta(t, 50, result[2], 0.1)
	assert.InDelta(t, 75, result[3], 0.1)
	assert.InDelta(t, 100, result[4], 0.1)
}

func TestRenderBrailleSparkline(t *testing.T) {
	tests := []struct {
		name      string
		data      []float64
		width     int
		height    int
		wantEmpty bool
	}{
		{name: "empty data returns empty string", data: []float64{}, width: 10, height: 4, wantEmpty: true},
		{name: "zero width returns empty string", data: []float64{50}, width: 0, height: 4, wantEmpty: true},
		{name: "zero height returns empty string", data: []float64{50}, width: 10, height: 0, wantEmpty: true},
		{name: "valid input returns non-empty", data: []float64{25, 50, 75, 100}, width: 10, height: 4, wantEmpty: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderBrailleSparkline(tt.data, tt.width, tt.height, WarningThreshold, CriticalThreshold, ColorGraph)
			if tt.wantEmpty {
				assert.Empty(t, result)
			} else {
				assert.NotEmpty(t, result)
			}
		})
	}
}

func TestRenderBrailleSparkline_ProducesCorrectRowCount(t *testing.T) {
	data := []float64{25, 50, 75, 100}
	height := 8

	result := RenderBrailleSparkline(data, 10, height, WarningThreshold, CriticalThreshold, ColorGraph)

	lines := strings.Split(result, "\n")
	assert.Len(t, lines, height)
}

func TestRenderBrailleSparkline_ColorBasedOnValue(t *testing.T) {
	// Coloring must track data values, not row position in the graph.
	//
	// ANSI color codes for reference:
	// ColorHealthy  (#39FF14) appears as 38;2;57;255;20
	// ColorWarning  (#FFAA00) appears as 38;2;255;170;0
	// ColorCritical (#FF0055) appears as 38;2;255;0;85

	tests := []struct {
		name           string
		data           []float64
		shouldContain  string
		shouldNotMatch string
	}{
		{
			name:           "low values should be green",
			data:           []float64{20, 25, 30, 20, 25, 30},
			shouldContain:  "38;2;57;255;20",
			shouldNotMatch: "38;2;255;0;85",
		},
		{
			name:          "medium values should be amber",
			data:          []float64{75, 80, 85, 75, 80, 85},
			shouldContain: "38;2;255;170;0",
		},
		{
			name:          "high values should be red",
			data:          []float64{92, 95, 98, 92, 95, 98},
			shouldContain: "38;2;255;0;85",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderBrailleSparkline(tt.data, 10, 2, WarningThreshold, CriticalThreshold, ColorGraph)

			assert.Contains(t, result, tt.shouldContain)
			if tt.shouldNotMatch != "" {
				assert.NotContains(t, result, tt.shouldNotMatch)
			}
		})
	}
}

func TestRenderBrailleSparkline_CustomThresholds(t *testing.T) {
	// With the configured CPU pair (60/80), 65% is already warning.
	data := []float64{65, 65, 65, 65}

	result := RenderBrailleSparkline(data, 4, 2, 60, 80, ColorGraph)

	assert.Contains(t, result, "38;2;255;170;0", "65%% should be amber at a 60%% warning threshold")
	assert.NotContains(t, result, "38;2;57;255;20")
}

func TestRenderBrailleSparkline_NonPercentageUsesBaseColor(t *testing.T) {
	// GC rates and byte counts are not percentages; they keep the base color.
	data := []float64{120, 900, 4000}

	result := RenderBrailleSparkline(data, 4, 2, WarningThreshold, CriticalThreshold, ColorGraph)

	// ColorGraph (#00FFFF) appears as 38;2;0;255;255
	assert.Contains(t, result, "38;2;0;255;255")
}

func TestRenderMiniSparkline(t *testing.T) {
	tests := []struct {
		name      string
		data      []float64
		width     int
		wantEmpty bool
	}{
		{name: "empty data", data: []float64{}, width: 10, wantEmpty: true},
		{name: "zero width", data: []float64{50}, width: 0, wantEmpty: true},
		{name: "valid input", data: []float64{10, 50, 90}, width: 5, wantEmpty: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderMiniSparkline(tt.data, tt.width, ColorGraph)
			if tt.wantEmpty {
				assert.Empty(t, result)
			}
			if !tt.wantEmpty {
				assert.NotEmpty(t, result)
			}
		})
	}
}

func TestRenderGradientBar(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		percent float64
	}{
		{name: "zero percent", width: 10, percent: 0},
		{name: "50 percent", width: 10, percent: 50},
		{name: "100 percent", width: 10, percent: 100},
		{name: "clamps negative", width: 10, percent: -10},
		{name: "clamps over 100", width: 10, percent: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderGradientBar(tt.width, tt.percent)
			assert.NotEmpty(t, result)
		})
	}
}
