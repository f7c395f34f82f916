package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/greenarea-go/internal/sensor"
	"github.com/jengzang/greenarea-go/pkg/response"
)

// ProfileView is the public description of a sensor profile
type ProfileView struct {
	Name         string  `json:"name"`
	Collection   string  `json:"collection"`
	PixelSize    float64 `json:"pixel_size_m"`
	ExportPrefix string  `json:"export_prefix"`
	Encoding     string  `json:"encoding"`
}

// ListProfiles lists the registered sensor profiles
// GET /api/v1/profiles
func ListProfiles(c *gin.Context) {
	names := sensor.Names()
	views := make([]ProfileView, 0, len(names))
	for _, name := range names {
		p, err := sensor.Lookup(name)
		if err != nil {
			continue
		}
		views = append(views, ProfileView{
			Name:         p.Name,
			Collection:   p.Collection,
			PixelSize:    p.PixelSize,
			ExportPrefix: p.ExportPrefix,
			Encoding:     p.Encoding.String(),
		})
	}
	response.Success(c, views)
}
