package mathutil

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 1, 10); got != 5 {
		t.Errorf("Clamp(5,1,10) = %d, want 5", got)
	}
	if got := Clamp(-3, 1, 10); got != 1 {
		t.Errorf("Clamp(-3,1,10) = %d, want 1", got)
	}
	if got := Clamp(99, 1, 10); got != 10 {
		t.Errorf("Clamp(99,1,10) = %d, want 10", got)
	}
	if got := Clamp(0.5, 0.0, 1.0); got != 0.5 {
		t.Errorf("Clamp(0.5,0,1) = %f, want 0.5", got)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		v, alignment, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{300, 4, 300},
		{301, 4, 304},
		{17, 0, 17},
	}
	for _, c := range cases {
		if got := AlignUp(c.v, c.alignment); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.v, c.alignment, got, c.want)
		}
	}
}

func TestMipLevels(t *testing.T) {
	cases := []struct {
		w, h, want uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{256, 256, 9},
		{512, 256, 10},
		{1024, 1, 11},
	}
	for _, c := range cases {
		if got := MipLevels(c.w, c.h); got != c.want {
			t.Errorf("MipLevels(%d, %d) = %d, want %d", c.w, c.h, got, c.want)
		}
	}
}

func TestMipExtent(t *testing.T) {
	if got := MipExtent(256, 0); got != 256 {
		t.Errorf("MipExtent(256, 0) = %d, want 256", got)
	}
	if got := MipExtent(256, 3); got != 32 {
		t.Errorf("MipExtent(256, 3) = %d, want 32", got)
	}
	if got := MipExtent(256, 20); got != 1 {
		t.Errorf("MipExtent(256, 20) = %d, want 1", got)
	}
}
