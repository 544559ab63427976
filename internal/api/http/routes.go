package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/karthiivan/sih/internal/alerts"
	"github.com/karthiivan/sih/internal/broadcast"
	"github.com/karthiivan/sih/internal/external"
	"github.com/karthiivan/sih/internal/geo"
	"github.com/karthiivan/sih/internal/notes"
	"github.com/karthiivan/sih/internal/store"
	"github.com/karthiivan/sih/internal/telemetry"
)

var validate = validator.New()

const (
	defaultDataLimit = 1000
	upstreamTimeout  = 10 * time.Second
)

// Handlers bundles everything the HTTP layer serves.
type Handlers struct {
	Store       *store.SeriesStore
	Regions     []telemetry.Region
	Monitor     *alerts.Monitor
	Notes       *notes.Store
	Broadcaster *broadcast.Broadcaster

	Email alerts.Notifier
	SMS   alerts.Notifier

	Nominatim *external.NominatimClient
	OpenMeteo *external.OpenMeteoClient
	Elevation *external.OpenElevationClient

	// AlertsDryRun forces simulated sends when the caller does not
	// pass an explicit dry_run flag.
	AlertsDryRun bool

	Log zerolog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api")

	api.Get("/regions", h.getRegions)
	api.Get("/data", h.getData)
	api.Get("/current", h.getCurrent)
	api.Get("/stations/near", h.getStationsNear)
	api.Get("/search", h.searchPlaces)
	api.Get("/external/weather", h.externalWeather)
	api.Get("/geocode/reverse", h.reverseGeocode)
	api.Get("/elevation", h.elevation)

	api.Get("/thresholds", h.getThresholds)
	api.Post("/thresholds", h.setThreshold)

	api.Get("/notes", h.getNotes)
	api.Post("/notes", h.addNote)
	api.Delete("/notes/:id", h.deleteNote)

	api.Post("/alerts/sos", h.sosSMS)
	api.Post("/alerts/sos_email", h.sosEmail)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(h.serveWS))
}

func (h *Handlers) getRegions(c *fiber.Ctx) error {
	return c.JSON(h.Regions)
}

func (h *Handlers) getData(c *fiber.Ctx) error {
	regionID := c.Query("region", h.defaultRegion())

	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "offset and limit must be integers")
	}
	limit, err := queryInt(c, "limit", defaultDataLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "offset and limit must be integers")
	}

	var start, end *time.Time
	if s := c.Query("start"); s != "" {
		ts, err := parseTimestamp(s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid start timestamp")
		}
		start = &ts
	}
	if s := c.Query("end"); s != "" {
		ts, err := parseTimestamp(s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid end timestamp")
		}
		end = &ts
	}

	readings, err := h.Store.Range(regionID, start, end, offset, limit)
	switch {
	case errors.Is(err, store.ErrUnknownRegion):
		return fiber.NewError(fiber.StatusNotFound, "unknown region")
	case errors.Is(err, store.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read series")
	}

	return c.JSON(readings)
}

func (h *Handlers) getCurrent(c *fiber.Ctx) error {
	regionID := c.Query("region", h.defaultRegion())

	latest, err := h.Store.Latest(regionID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "No data available for region")
	}
	return c.JSON(latest)
}

func (h *Handlers) getStationsNear(c *fiber.Ctx) error {
	lat, lng, err := queryLatLng(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat,lng must be numbers")
	}

	limit, err := queryInt(c, "limit", 5)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
	}
	radiusKm := 200.0
	if s := c.Query("radius_km"); s != "" {
		if radiusKm, err = strconv.ParseFloat(s, 64); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "radius_km must be a number")
		}
	}

	return c.JSON(geo.Nearest(h.Regions, lat, lng, limit, radiusKm))
}

func (h *Handlers) searchPlaces(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "query too short")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	places, err := h.Nominatim.Search(ctx, q, 5)
	if err != nil {
		return upstreamError(c, "geocoding failed", err)
	}

	type searchHit struct {
		DisplayName    string               `json:"display_name"`
		Lat            float64              `json:"lat"`
		Lng            float64              `json:"lng"`
		NearestRegions []geo.RegionDistance `json:"nearest_regions"`
	}

	hits := make([]searchHit, 0, len(places))
	for _, p := range places {
		hits = append(hits, searchHit{
			DisplayName:    p.DisplayName,
			Lat:            p.Lat,
			Lng:            p.Lng,
			NearestRegions: geo.Nearest(h.Regions, p.Lat, p.Lng, 3, 0),
		})
	}
	return c.JSON(hits)
}

func (h *Handlers) externalWeather(c *fiber.Ctx) error {
	lat, lng, err := queryLatLng(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat,lng must be numbers")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	raw, err := h.OpenMeteo.Forecast(ctx, lat, lng)
	if err != nil {
		return upstreamError(c, "weather fetch failed", err)
	}
	return sendRawJSON(c, raw)
}

func (h *Handlers) reverseGeocode(c *fiber.Ctx) error {
	lat, lng, err := queryLatLng(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat,lng must be numbers")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	raw, err := h.Nominatim.Reverse(ctx, lat, lng)
	if err != nil {
		return upstreamError(c, "reverse geocoding failed", err)
	}
	return sendRawJSON(c, raw)
}

func (h *Handlers) elevation(c *fiber.Ctx) error {
	lat, lng, err := queryLatLng(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat,lng must be numbers")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	raw, err := h.Elevation.Lookup(ctx, lat, lng)
	if err != nil {
		return upstreamError(c, "elevation fetch failed", err)
	}
	return sendRawJSON(c, raw)
}

func (h *Handlers) getThresholds(c *fiber.Ctx) error {
	return c.JSON(h.Monitor.Snapshot())
}

func (h *Handlers) setThreshold(c *fiber.Ctx) error {
	var body struct {
		RegionID  string      `json:"regionId"`
		Threshold interface{} `json:"threshold"`
		Email     *string     `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	threshold, err := flexibleFloat(body.Threshold)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "threshold must be a number")
	}

	cfg, err := h.Monitor.SetThreshold(body.RegionID, threshold, body.Email)
	if errors.Is(err, alerts.ErrInvalidRegion) {
		return fiber.NewError(fiber.StatusBadRequest, "regionId is required")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store threshold")
	}
	return c.JSON(cfg)
}

func (h *Handlers) getNotes(c *fiber.Ctx) error {
	return c.JSON(h.Notes.List(c.Query("region")))
}

type noteRequest struct {
	RegionID   string      `json:"regionId" validate:"required"`
	Text       string      `json:"text" validate:"required"`
	WaterLevel interface{} `json:"water_level"`
}

func (h *Handlers) addNote(c *fiber.Ctx) error {
	var body noteRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "regionId and text are required")
	}

	waterLevel, err := flexibleFloat(body.WaterLevel)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "water_level must be a number")
	}

	return c.JSON(h.Notes.Add(body.RegionID, body.Text, waterLevel))
}

func (h *Handlers) deleteNote(c *fiber.Ctx) error {
	if err := h.Notes.Delete(c.Params("id")); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Note not found")
	}
	return c.JSON(fiber.Map{"success": true})
}

type sosRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	RegionID string `json:"regionId"`
	DryRun   string `json:"dry_run"`
}

func (h *Handlers) sosSMS(c *fiber.Ctx) error {
	var body sosRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if body.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	message := body.Message
	if message == "" {
		message = h.composeSOSMessage(body.RegionID)
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	res, err := h.SMS.Notify(ctx, body.Phone, "", message, h.dryRun(c, &body, false))
	if err != nil {
		return upstreamError(c, "sms failed", err)
	}
	return c.JSON(res)
}

func (h *Handlers) sosEmail(c *fiber.Ctx) error {
	var body sosRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if body.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	subject := firstNonEmpty(body.Subject, "SOS Flood Warning")
	message := body.Message
	if message == "" {
		message = h.composeSOSMessage(body.RegionID)
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	res, err := h.Email.Notify(ctx, body.Email, subject, message, h.dryRun(c, &body, true))
	if err != nil {
		return upstreamError(c, "email failed", err)
	}
	return c.JSON(res)
}

// composeSOSMessage builds a default warning from the region's latest
// reading when the caller supplied no message.
func (h *Handlers) composeSOSMessage(regionID string) string {
	base := "SOS Flood Warning"

	for _, r := range h.Regions {
		if r.ID != regionID {
			continue
		}
		base += " | Region: " + r.Name
		if latest, err := h.Store.Latest(regionID); err == nil {
			base += fmt.Sprintf(" | WL: %v m, Temp: %v °C", latest.WaterLevel, latest.Temperature)
		}
		break
	}

	return base + ". Please take immediate precautions and move to higher ground."
}

// serveWS bridges one websocket session onto the broadcaster. Each
// published update goes out as a data_update event; the subscription
// ends when the client disconnects or falls behind.
func (h *Handlers) serveWS(conn *websocket.Conn) {
	sub := h.Broadcaster.Subscribe()
	defer h.Broadcaster.Unsubscribe(sub)

	// Reader loop only detects disconnects; inbound frames are ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Broadcaster.Unsubscribe(sub)
				return
			}
		}
	}()

	type wsEvent struct {
		Event string           `json:"event"`
		Data  telemetry.Update `json:"data"`
	}

	for update := range sub.Updates() {
		if err := conn.WriteJSON(wsEvent{Event: "data_update", Data: update}); err != nil {
			h.Log.Debug().Err(err).Str("subscriber", sub.ID).Msg("websocket write failed")
			return
		}
	}
}

func (h *Handlers) defaultRegion() string {
	if len(h.Regions) == 0 {
		return ""
	}
	return h.Regions[0].ID
}

// dryRun resolves the effective dry-run flag: explicit query param,
// then body field, then the channel default combined with the global
// ALERTS_DRY_RUN setting.
func (h *Handlers) dryRun(c *fiber.Ctx, body *sosRequest, channelDefault bool) bool {
	if v := c.Query("dry_run"); v != "" {
		return truthy(v)
	}
	if body.DryRun != "" {
		return truthy(body.DryRun)
	}
	return channelDefault || h.AlertsDryRun
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func queryLatLng(c *fiber.Ctx) (float64, float64, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

// parseTimestamp accepts RFC3339 (including a trailing Z) or a naive
// ISO-8601 timestamp, normalized to UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, errors.New("invalid timestamp format")
}

// flexibleFloat accepts a JSON number or a numeric string, mirroring
// the loosely typed payloads older clients still send. nil stays nil.
func flexibleFloat(v interface{}) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sendRawJSON(c *fiber.Ctx, raw []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func upstreamError(c *fiber.Ctx, msg string, err error) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error":  msg,
		"detail": err.Error(),
	})
}
