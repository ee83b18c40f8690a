package domain

// Типы геометрии, которые понимает проектор карты.
// Все остальное молча игнорируется (не ошибка).
const (
	GeometryPoint      = "Point"
	GeometryLineString = "LineString"
)

// GeoFeature — фича из GET /api/v1/localization/geo-json.
// Coordinates оставляем сырыми (json.RawMessage не нужен — leaflet на фронте
// сам разбирает [lon,lat] против [[lon,lat],...]), поэтому interface{}.
type GeoFeature struct {
	Geometry struct {
		Type        string      `json:"type"`
		Coordinates interface{} `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		ID      string `json:"id,omitempty"`      // для Point (узел сети)
		Segment string `json:"segment,omitempty"` // для LineString (участок трубы)
	} `json:"properties"`
}

// Topology — статичное геоописание сети: узлы + сегменты труб.
type Topology struct {
	Features []GeoFeature `json:"features"`
}
