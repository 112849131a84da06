package impostor

import (
	"github.com/Faultbox/impostor/pkg/math"
)

// RemapUVs maps every corner of a proxy face into its atlas placement.
// Coordinates follow the OBJ convention: v = 0 is the bottom of the atlas.
func RemapUVs(face ProxyFace, cam FaceCamera, pl AtlasPlacement, atlasW, atlasH int) []math.Vec2 {
	uvs := make([]math.Vec2, len(face.Vertices))
	for i, p := range face.Vertices {
		lu, lv, _ := cam.Project(p)
		lu = clampTexel(lu, pl.Width)
		lv = clampTexel(lv, pl.Height)
		uvs[i] = atlasUV(pl, lu, lv, atlasW, atlasH)
	}
	return uvs
}

// blankUVs maps n corners to the centre of the reserved transparent texel.
func blankUVs(n int, pl AtlasPlacement, atlasW, atlasH int) []math.Vec2 {
	uv := atlasUV(pl, 0.5, 0.5, atlasW, atlasH)
	uvs := make([]math.Vec2, n)
	for i := range uvs {
		uvs[i] = uv
	}
	return uvs
}

func atlasUV(pl AtlasPlacement, lu, lv float32, atlasW, atlasH int) math.Vec2 {
	return math.Vec2{
		X: (float32(pl.X) + lu*float32(pl.Width)) / float32(atlasW),
		Y: 1 - (float32(pl.Y)+lv*float32(pl.Height))/float32(atlasH),
	}
}

// clampTexel keeps a patch-local coordinate half a texel inside the patch
// so bilinear sampling never reads a neighbour.
func clampTexel(t float32, size int) float32 {
	half := 0.5 / float32(size)
	if t < half {
		return half
	}
	if t > 1-half {
		return 1 - half
	}
	return t
}
