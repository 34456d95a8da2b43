package gpu

import "testing"

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		n, size, want uint32
	}{
		{0, 256, 0},
		{1, 256, 1},
		{256, 256, 1},
		{257, 256, 2},
		{1000, 64, 16},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := WorkgroupCount(tt.n, tt.size); got != tt.want {
			t.Errorf("WorkgroupCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestParseTextureFormat(t *testing.T) {
	f, err := ParseTextureFormat("rgba32float")
	if err != nil || f != FormatRGBA32Float {
		t.Errorf("rgba32float: got %v, %v", f, err)
	}
	f, err = ParseTextureFormat("")
	if err != nil || f != FormatRGBA8Unorm {
		t.Errorf("empty: got %v, %v", f, err)
	}
	if _, err := ParseTextureFormat("bgra8"); err == nil {
		t.Error("expected error for unknown format")
	}
	if FormatRGBA8Unorm.BytesPerTexel() != 4 || FormatRGBA32Float.BytesPerTexel() != 16 {
		t.Error("unexpected texel sizes")
	}
}
