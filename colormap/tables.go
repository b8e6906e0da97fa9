package colormap

// Anchor stops for the built-in colormaps, sampled at 17 evenly spaced
// positions. Full 256-stop lookup tables are expanded from these at
// first use. Values follow the matplotlib definitions.

var anchorTables = map[string][][3]uint8{
	"viridis": {
		{68, 1, 84}, {72, 26, 108}, {71, 47, 125}, {65, 68, 135},
		{57, 86, 140}, {49, 104, 142}, {42, 120, 142}, {35, 136, 142},
		{31, 152, 139}, {34, 168, 132}, {53, 183, 121}, {84, 197, 104},
		{122, 209, 81}, {165, 219, 54}, {210, 226, 27}, {243, 229, 30},
		{253, 231, 37},
	},
	"plasma": {
		{13, 8, 135}, {51, 5, 151}, {80, 2, 162}, {106, 0, 168},
		{132, 5, 167}, {156, 23, 158}, {177, 42, 144}, {195, 61, 128},
		{211, 81, 113}, {225, 100, 98}, {237, 121, 83}, {246, 143, 68},
		{252, 166, 54}, {254, 192, 41}, {249, 220, 38}, {242, 242, 33},
		{240, 249, 33},
	},
	"inferno": {
		{0, 0, 4}, {12, 8, 38}, {31, 12, 72}, {56, 9, 98},
		{80, 18, 110}, {103, 28, 117}, {125, 38, 119}, {148, 48, 117},
		{171, 58, 110}, {193, 71, 99}, {212, 87, 83}, {228, 106, 65},
		{240, 128, 44}, {247, 153, 21}, {250, 181, 7}, {248, 210, 31},
		{252, 255, 164},
	},
	"magma": {
		{0, 0, 4}, {11, 9, 36}, {28, 16, 68}, {49, 18, 104},
		{74, 18, 125}, {97, 24, 135}, {120, 34, 138}, {143, 44, 139},
		{167, 53, 134}, {190, 64, 127}, {212, 78, 116}, {230, 97, 104},
		{243, 120, 97}, {250, 148, 99}, {253, 175, 112}, {254, 202, 134},
		{252, 253, 191},
	},
	"turbo": {
		{48, 18, 59}, {64, 60, 139}, {70, 98, 189}, {70, 134, 223},
		{60, 167, 240}, {40, 197, 235}, {28, 220, 209}, {39, 235, 175},
		{79, 244, 133}, {127, 248, 93}, {171, 244, 60}, {206, 229, 41},
		{232, 207, 30}, {248, 177, 23}, {252, 140, 16}, {211, 46, 6},
		{122, 4, 3},
	},
	"jet": {
		{0, 0, 128}, {0, 0, 192}, {0, 0, 255}, {0, 64, 255},
		{0, 128, 255}, {0, 192, 255}, {0, 255, 255}, {64, 255, 191},
		{128, 255, 128}, {191, 255, 64}, {255, 255, 0}, {255, 192, 0},
		{255, 128, 0}, {255, 64, 0}, {255, 0, 0}, {192, 0, 0},
		{128, 0, 0},
	},
	"gray": {
		{0, 0, 0}, {16, 16, 16}, {32, 32, 32}, {48, 48, 48},
		{64, 64, 64}, {80, 80, 80}, {96, 96, 96}, {112, 112, 112},
		{128, 128, 128}, {143, 143, 143}, {159, 159, 159}, {175, 175, 175},
		{191, 191, 191}, {207, 207, 207}, {223, 223, 223}, {239, 239, 239},
		{255, 255, 255},
	},
}

// lutSize is the number of stops in an expanded lookup table.
const lutSize = 256

// expandAnchors linearly interpolates the anchor stops into a full LUT.
func expandAnchors(anchors [][3]uint8) []RGB {
	lut := make([]RGB, lutSize)
	segments := len(anchors) - 1

	for i := 0; i < lutSize; i++ {
		pos := float64(i) / float64(lutSize-1) * float64(segments)
		seg := int(pos)
		if seg >= segments {
			seg = segments - 1
		}
		frac := pos - float64(seg)

		a := anchors[seg]
		b := anchors[seg+1]
		lut[i] = RGB{
			R: uint8(float64(a[0]) + frac*(float64(b[0])-float64(a[0])) + 0.5),
			G: uint8(float64(a[1]) + frac*(float64(b[1])-float64(a[1])) + 0.5),
			B: uint8(float64(a[2]) + frac*(float64(b[2])-float64(a[2])) + 0.5),
		}
	}
	return lut
}

// AvailableMaps returns the names of all built-in colormaps.
func AvailableMaps() []string {
	return []string{"viridis", "plasma", "inferno", "magma", "turbo", "jet", "gray"}
}
