package raster

type pixel struct{ x, y int }

// FloodFill replaces the 4-connected run of target pixels containing (x,y)
// with repl. It returns the number of pixels changed.
func FloodFill[T comparable](im *Image[T], x, y int, target, repl T) int {
	if target == repl {
		return 0
	}
	n := 0
	stack := []pixel{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !im.In(p.x, p.y) || im.Get(p.x, p.y) != target {
			continue
		}
		im.Set(p.x, p.y, repl)
		n++
		stack = append(stack, pixel{p.x, p.y + 1}, pixel{p.x, p.y - 1}, pixel{p.x - 1, p.y}, pixel{p.x + 1, p.y})
	}
	return n
}

// FloodFillInto walks the 4-connected run of target pixels of src containing
// (x,y) and writes repl into dst at every visited pixel. Pixels of dst that
// already hold repl stop the walk. src and dst must have the same size.
func FloodFillInto[T, U comparable](src *Image[T], dst *Image[U], x, y int, target T, repl U) int {
	n := 0
	stack := []pixel{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !src.In(p.x, p.y) {
			continue
		}
		if src.Get(p.x, p.y) != target || dst.Get(p.x, p.y) == repl {
			continue
		}
		dst.Set(p.x, p.y, repl)
		n++
		stack = append(stack, pixel{p.x, p.y + 1}, pixel{p.x, p.y - 1}, pixel{p.x - 1, p.y}, pixel{p.x + 1, p.y})
	}
	return n
}

// RegionOutline returns a mask holding 255 on every foreground pixel of
// region that touches the background or the image border through one of its
// eight neighbours. The result is the closed outline stroke of the region.
func RegionOutline(region *Mask) *Mask {
	out := New[uint8](region.W, region.H)
	bg := func(x, y int) bool {
		return !region.In(x, y) || region.Get(x, y) == 0
	}
	for y := 0; y < region.H; y++ {
		for x := 0; x < region.W; x++ {
			if region.Get(x, y) == 0 {
				continue
			}
		edge:
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if bg(x+dx, y+dy) {
						out.Set(x, y, 255)
						break edge
					}
				}
			}
		}
	}
	return out
}

// Erase clears every pixel of im where cut is non-zero.
func Erase(im, cut *Mask) {
	for i, v := range cut.Pix {
		if v != 0 && i < len(im.Pix) {
			im.Pix[i] = 0
		}
	}
}
