package tiles

import "testing"

func TestParseObjectTile(t *testing.T) {
	exts := []string{"webp", "png"}
	tests := []struct {
		rel   string
		x, y  int
		valid bool
	}{
		{"12/34.webp", 12, 34, true},
		{"12/34.PNG", 12, 34, true},
		{"12/34.tif", 0, 0, false},
		{"12/a.webp", 0, 0, false},
		{"34.webp", 0, 0, false},
		{"1/2/3.webp", 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := parseObjectTile(tt.rel, exts)
		if ok != tt.valid || x != tt.x || y != tt.y {
			t.Errorf("parseObjectTile(%q) = (%d, %d, %v), want (%d, %d, %v)", tt.rel, x, y, ok, tt.x, tt.y, tt.valid)
		}
	}
}

func TestMinioStore_ZoomPrefix(t *testing.T) {
	s := NewMinioStoreWithClient(nil, "tiles", "mars", nil)
	if got := s.zoomPrefix("ctx", "B01", 8); got != "mars/ctx/B01/8/" {
		t.Errorf("zoomPrefix = %q", got)
	}
	if got := s.zoomPrefix("ctx", "", 8); got != "mars/ctx/8/" {
		t.Errorf("zoomPrefix without footprint = %q", got)
	}
}
