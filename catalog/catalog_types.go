package catalog

import (
	"strconv"

	"github.com/Carmen-Shannon/oxy-showcase/common"
)

// Season is the collection a model is published in.
type Season struct {
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

// Category classifies a model, such as a costume or a totem.
type Category struct {
	Name string `json:"name"`
}

// AcceptableItem is an in-game item the model can replace.
type AcceptableItem struct {
	Name      string `json:"name"`
	TextureID string `json:"texture_id"`
}

// GLTF references the stored asset and its saved display metadata.
type GLTF struct {
	ResourceID string            `json:"resource_id"`
	Meta       *common.AssetMeta `json:"meta"`
}

// Model is one catalog entry.
type Model struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Season          *Season          `json:"season"`
	Category        []Category       `json:"category"`
	AcceptableItems []AcceptableItem `json:"acceptable_items"`
	GLTF            *GLTF            `json:"gltf"`
}

// HasAsset reports whether the model has an uploaded glTF asset.
func (m *Model) HasAsset() bool {
	return m != nil && m.GLTF != nil && m.GLTF.ResourceID != ""
}

// Display returns the saved render section of the asset metadata, or nil.
func (m *Model) Display() *common.DisplayMeta {
	if !m.HasAsset() {
		return nil
	}
	return m.GLTF.Meta.Display()
}

// Key returns the model id as a string, used as the render cache asset id.
func (m *Model) Key() string {
	return strconv.FormatInt(m.ID, 10)
}

// ModelPage is one page of a model listing.
type ModelPage struct {
	Data       []Model `json:"data"`
	TotalCount int     `json:"total_count"`
}

// Pages returns the number of pages of size take.
func (p *ModelPage) Pages(take int) int {
	if take <= 0 {
		return 0
	}
	return (p.TotalCount + take - 1) / take
}

// Filter is a selectable season or category.
type Filter struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Filters lists every season and category in the catalog.
type Filters struct {
	Seasons    []Filter `json:"seasons"`
	Categories []Filter `json:"categories"`
}

// ListOptions selects a page of the model listing. Pages are zero-based.
type ListOptions struct {
	Page   int
	Take   int
	Search string
}
