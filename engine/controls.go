package engine

import "time"

// View changes in the call styles of the simulated libraries. Each one starts
// an animation of duration d; the end event of the map dialect is emitted
// once its final state has been drawn.

// AnimateZoom animates the zoom level (OpenLayers view.animate({zoom}))
func (m *Map) AnimateZoom(zoom float64, d time.Duration) error {
	to := m.View()
	to.Zoom = zoom
	return m.animate(to, d, m.dialect.zoomEnd)
}

// AnimateCenter animates to a center in EPSG:3857 meters
// (OpenLayers view.animate({center}))
func (m *Map) AnimateCenter(center [2]float64, d time.Duration) error {
	to := m.View()
	to.Lon, to.Lat = ToLonLat(center)
	return m.animate(to, d, m.dialect.moveEnd)
}

// ZoomTo eases to a zoom level (MapLibre map.zoomTo)
func (m *Map) ZoomTo(zoom float64, d time.Duration) error {
	return m.AnimateZoom(zoom, d)
}

// EaseTo eases to a lon/lat center (MapLibre map.easeTo({center}))
func (m *Map) EaseTo(lon, lat float64, d time.Duration) error {
	to := m.View()
	to.Lon, to.Lat = lon, lat
	return m.animate(to, d, m.dialect.moveEnd)
}

// SetViewState transitions the whole view state (deck.gl)
func (m *Map) SetViewState(vs View, d time.Duration) error {
	end := m.dialect.moveEnd
	if vs.Lon == m.View().Lon && vs.Lat == m.View().Lat {
		end = m.dialect.zoomEnd
	}
	return m.animate(vs, d, end)
}

// SetZoom animates the zoom level (Leaflet map.setZoom)
func (m *Map) SetZoom(zoom float64, d time.Duration) error {
	return m.AnimateZoom(zoom, d)
}

// PanTo pans to a lat/lng center, latitude first (Leaflet map.panTo)
func (m *Map) PanTo(lat, lon float64, d time.Duration) error {
	return m.EaseTo(lon, lat, d)
}
