package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/forestos-core/internal/alert"
	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/plant"
	"github.com/nerrad567/forestos-core/internal/sensor"
	"github.com/nerrad567/forestos-core/internal/watering"
)

// registerSensor creates a sensor on the plant through the API and returns
// it with its device token.
func (e *testEnv) registerSensor(t *testing.T, token, deviceID string, plantID int64) sensor.Sensor {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/sensors", token, map[string]any{
		"device_id":     deviceID,
		"user_plant_id": plantID,
	})
	expectStatus(t, rec, http.StatusCreated)
	return decodeBody[sensor.Sensor](t, rec)
}

// submitReading posts a reading with the raw Authorization header value.
func (e *testEnv) submitReading(t *testing.T, deviceID, authorization, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/"+deviceID+"/readings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// ─── User Tests ─────────────────────────────────────────────────────

func TestUsersMe(t *testing.T) {
	env := testServer(t)
	user, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[auth.User](t, rec); got.Email != user.Email {
		t.Errorf("email = %q, want %q", got.Email, user.Email)
	}
}

func TestUpdateMe_IgnoresPrivilegeFields(t *testing.T) {
	env := testServer(t)
	_, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodPatch, "/api/v1/users/me", token, map[string]any{
		"full_name":    "Alice Green",
		"is_superuser": true,
		"is_active":    false,
	})
	expectStatus(t, rec, http.StatusOK)

	got := decodeBody[auth.User](t, rec)
	if got.FullName == nil || *got.FullName != "Alice Green" {
		t.Errorf("full_name = %v, want Alice Green", got.FullName)
	}
	if got.IsSuperuser || !got.IsActive {
		t.Errorf("is_superuser = %v, is_active = %v, want false, true", got.IsSuperuser, got.IsActive)
	}
}

func TestUpdateMe_EmailTaken(t *testing.T) {
	env := testServer(t)
	env.createUser(t, "bob@example.com", true, false)
	_, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodPatch, "/api/v1/users/me", token, map[string]any{"email": "bob@example.com"})
	expectError(t, rec, http.StatusBadRequest, msgEmailTaken)
}

func TestUpdateMe_PasswordChange(t *testing.T) {
	env := testServer(t)
	_, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodPatch, "/api/v1/users/me", token, map[string]any{"password": "a-brand-new-password"})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice@example.com",
		"password": "a-brand-new-password",
	})
	expectStatus(t, rec, http.StatusOK)
}

func TestAdminUsers_RequireSuperuser(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice.ID)},
		{http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", alice.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", alice.ID)},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var body any
			if tc.method == http.MethodPatch {
				body = map[string]any{"is_superuser": true}
			}
			rec := env.do(t, tc.method, tc.path, token, body)
			expectError(t, rec, http.StatusForbidden, auth.ErrInsufficientPrivilege.Message)
		})
	}
}

func TestAdminUsers(t *testing.T) {
	env := testServer(t)
	_, admin := env.createUser(t, "admin@example.com", true, true)
	alice, _ := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodGet, "/api/v1/users?limit=10", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	list := decodeBody[userListResponse](t, rec)
	if list.Total != 2 || len(list.Users) != 2 {
		t.Errorf("total = %d, len = %d, want 2, 2", list.Total, len(list.Users))
	}

	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", alice.ID), admin, map[string]any{"is_active": false})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[auth.User](t, rec); got.IsActive {
		t.Error("is_active = true after deactivation")
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", alice.ID), admin, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice.ID), admin, nil)
	expectError(t, rec, http.StatusNotFound, "User not found")
}

// ─── Catalog Tests ──────────────────────────────────────────────────

func TestCatalog_Anonymous(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/plants", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "owned_count") {
		t.Error("anonymous list includes owned_count")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/plants/"+testSpecies, "", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodGet, "/api/v1/plants/no-such-plant", "", nil)
	expectError(t, rec, http.StatusNotFound, "Plant with species_id 'no-such-plant' not found")
}

func TestCatalog_InvalidTokenIsAnonymous(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/plants", "not.a.jwt", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestCatalog_OwnedCount(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	env.createPlant(t, alice.ID, "Monty")
	env.createPlant(t, alice.ID, "Monty II")

	rec := env.do(t, http.MethodGet, "/api/v1/plants/"+testSpecies, token, nil)
	expectStatus(t, rec, http.StatusOK)

	body := decodeBody[map[string]any](t, rec)
	if got, _ := body["owned_count"].(float64); got != 2 { //nolint:errcheck // zero on mismatch
		t.Errorf("owned_count = %v, want 2", body["owned_count"])
	}
}

func TestCatalog_Search(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/plants/search?q=m", "", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodGet, "/api/v1/plants/search?q=swiss", "", nil)
	expectStatus(t, rec, http.StatusOK)
	body := decodeBody[struct {
		Plants []map[string]any `json:"plants"`
	}](t, rec)
	if len(body.Plants) != 1 {
		t.Errorf("search results = %d, want 1", len(body.Plants))
	}
}

func TestCatalog_ByCareLevel(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/plants/by-care-level/impossible", "", nil)
	expectError(t, rec, http.StatusBadRequest, "Invalid care level. Must be: easy, moderate, or difficult")

	rec = env.do(t, http.MethodGet, "/api/v1/plants/by-care-level/easy", "", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestCatalog_CreateRequiresSuperuser(t *testing.T) {
	env := testServer(t)
	_, token := env.createUser(t, "alice@example.com", true, false)
	_, admin := env.createUser(t, "admin@example.com", true, true)

	body := map[string]any{
		"species_id":      "ficus-lyrata",
		"common_names":    []string{"Fiddle-leaf fig"},
		"scientific_name": "Ficus lyrata",
	}

	rec := env.do(t, http.MethodPost, "/api/v1/plants", "", body)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(t, http.MethodPost, "/api/v1/plants", token, body)
	expectError(t, rec, http.StatusForbidden, auth.ErrInsufficientPrivilege.Message)

	rec = env.do(t, http.MethodPost, "/api/v1/plants", admin, body)
	expectStatus(t, rec, http.StatusCreated)

	rec = env.do(t, http.MethodPost, "/api/v1/plants", admin, body)
	expectStatus(t, rec, http.StatusConflict)
}

// ─── User Plant Tests ───────────────────────────────────────────────

func TestUserPlants_Create(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodPost, "/api/v1/user-plants", token, map[string]any{
		"species_id": testSpecies,
		"nickname":   "Monty",
	})
	expectStatus(t, rec, http.StatusCreated)

	p := decodeBody[plant.UserPlant](t, rec)
	if p.UserID != alice.ID {
		t.Errorf("user_id = %d, want %d", p.UserID, alice.ID)
	}
	if !p.IsActive {
		t.Error("new plant is not active")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/user-plants", token, map[string]any{
		"species_id": "no-such-plant",
		"nickname":   "Ghost",
	})
	expectError(t, rec, http.StatusNotFound, "Plant species 'no-such-plant' not found")
}

func TestUserPlants_ListOnlyOwn(t *testing.T) {
	env := testServer(t)
	alice, aliceToken := env.createUser(t, "alice@example.com", true, false)
	bob, _ := env.createUser(t, "bob@example.com", true, false)
	env.createPlant(t, alice.ID, "Monty")
	env.createPlant(t, bob.ID, "Bob's fern")

	rec := env.do(t, http.MethodGet, "/api/v1/user-plants", aliceToken, nil)
	expectStatus(t, rec, http.StatusOK)

	list := decodeBody[userPlantListResponse](t, rec)
	if list.Total != 1 || len(list.Plants) != 1 || list.Plants[0].Nickname != "Monty" {
		t.Errorf("plants = %+v, want only Monty", list.Plants)
	}
}

func TestUserPlants_Ownership(t *testing.T) {
	env := testServer(t)
	alice, _ := env.createUser(t, "alice@example.com", true, false)
	_, bobToken := env.createUser(t, "bob@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	path := fmt.Sprintf("/api/v1/user-plants/%d", p.ID)

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, path, nil},
		{http.MethodPatch, path, map[string]any{"nickname": "Mine now"}},
		{http.MethodPut, path, map[string]any{"nickname": "Mine now"}},
		{http.MethodDelete, path, nil},
		{http.MethodPost, path + "/water", nil},
		{http.MethodPost, fmt.Sprintf("/api/v1/watering/%d/trigger", p.ID), nil},
		{http.MethodGet, fmt.Sprintf("/api/v1/watering/%d/history", p.ID), nil},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, bobToken, tc.body)
			expectError(t, rec, http.StatusForbidden, msgForbidden)
		})
	}

	got, err := env.plants.GetByID(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Nickname != "Monty" || got.LastWatered != nil {
		t.Errorf("plant changed by another user: %+v", got)
	}
}

func TestUserPlants_NotFound(t *testing.T) {
	env := testServer(t)
	_, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodGet, "/api/v1/user-plants/9999", token, nil)
	expectError(t, rec, http.StatusNotFound, msgPlantNotFound)

	rec = env.do(t, http.MethodGet, "/api/v1/user-plants/abc", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestUserPlants_UpdateWaterDelete(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	path := fmt.Sprintf("/api/v1/user-plants/%d", p.ID)

	rec := env.do(t, http.MethodPatch, path, token, map[string]any{"nickname": "Monty Python", "custom_moisture_min": 30})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[plant.UserPlant](t, rec); got.Nickname != "Monty Python" {
		t.Errorf("nickname = %q, want Monty Python", got.Nickname)
	}

	rec = env.do(t, http.MethodPost, path+"/water", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[plant.UserPlant](t, rec); got.LastWatered == nil {
		t.Error("last_watered not set")
	}

	rec = env.do(t, http.MethodDelete, path, token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodGet, path, token, nil)
	expectError(t, rec, http.StatusNotFound, msgPlantNotFound)
}

// ─── Sensor Tests ───────────────────────────────────────────────────

func TestSensors_CreateAndRedact(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")

	created := env.registerSensor(t, token, "SENSOR-A1", p.ID)
	if created.AuthToken == "" {
		t.Fatal("create response has no auth_token")
	}
	if !created.IsOnline || created.BatteryLevel == nil || *created.BatteryLevel != defaultBatteryLevel {
		t.Errorf("new sensor = online %v battery %v, want online at 100", created.IsOnline, created.BatteryLevel)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "auth_token") {
		t.Error("GET /sensors/{id} leaks auth_token")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/sensors", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), created.AuthToken) {
		t.Error("GET /sensors leaks auth_token")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/sensors", token, map[string]any{
		"device_id":     "SENSOR-A1",
		"user_plant_id": p.ID,
	})
	expectError(t, rec, http.StatusBadRequest, msgDeviceTaken)
}

func TestSensors_Ownership(t *testing.T) {
	env := testServer(t)
	alice, aliceToken := env.createUser(t, "alice@example.com", true, false)
	bob, bobToken := env.createUser(t, "bob@example.com", true, false)
	alicePlant := env.createPlant(t, alice.ID, "Monty")
	bobPlant := env.createPlant(t, bob.ID, "Fern")
	env.registerSensor(t, aliceToken, "SENSOR-A1", alicePlant.ID)

	rec := env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1", bobToken, nil)
	expectError(t, rec, http.StatusForbidden, msgForbidden)

	rec = env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1/readings", bobToken, nil)
	expectError(t, rec, http.StatusForbidden, msgForbidden)

	// Pairing with someone else's plant
	rec = env.do(t, http.MethodPost, "/api/v1/sensors", aliceToken, map[string]any{
		"device_id":     "SENSOR-A2",
		"user_plant_id": bobPlant.ID,
	})
	expectError(t, rec, http.StatusForbidden, msgForbidden)

	rec = env.do(t, http.MethodPut, "/api/v1/sensors/SENSOR-A1", aliceToken, map[string]any{"user_plant_id": bobPlant.ID})
	expectError(t, rec, http.StatusForbidden, msgForbidden)

	rec = env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-ZZ", aliceToken, nil)
	expectError(t, rec, http.StatusNotFound, msgSensorNotFound)
}

func TestSensors_CreateRequiresPlant(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)

	rec := env.do(t, http.MethodPost, "/api/v1/sensors", token, map[string]any{"device_id": "LOOSE-1"})
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decodeBody[Error](t, rec); body.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeValidation)
	}

	// The rejected device id stays free for its owner
	p := env.createPlant(t, alice.ID, "Monty")
	env.registerSensor(t, token, "LOOSE-1", p.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/sensors/LOOSE-1", token, nil)
	expectStatus(t, rec, http.StatusOK)
	rec = env.do(t, http.MethodGet, "/api/v1/sensors", token, nil)
	if body := decodeBody[map[string]any](t, rec); body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/sensors/LOOSE-1", token, nil)
	expectStatus(t, rec, http.StatusNoContent)
}

func TestSensors_NewSensorSurvivesOfflineSweep(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	sn := env.registerSensor(t, token, "SENSOR-NEW", p.ID)
	if sn.LastSeen == nil {
		t.Fatal("last_seen not set at registration")
	}

	sweeper := sensor.NewOfflineSweeper(env.sensors, nil, 30*time.Minute, time.Minute, testLogger().Logger)
	n, err := sweeper.Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Sweep() = %d, want 0", n)
	}

	got, err := env.sensors.GetByDeviceID(t.Context(), "SENSOR-NEW")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if !got.IsOnline {
		t.Error("freshly registered sensor marked offline")
	}
}

func TestSubmitReading_DeviceAuth(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	sn := env.registerSensor(t, token, "SENSOR-A1", p.ID)
	body := `{"moisture_percent": 42.5, "battery_level": 90}`

	tests := []struct {
		name          string
		authorization string
		message       string
	}{
		{"wrong token", "Bearer not-the-token", auth.ErrInvalidDeviceCredentials.Message},
		{"missing header", "", auth.ErrMalformedHeader.Message},
		{"other scheme", "Token " + sn.AuthToken, auth.ErrMalformedHeader.Message},
		{"user token", "Bearer " + token, auth.ErrInvalidDeviceCredentials.Message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.submitReading(t, "SENSOR-A1", tt.authorization, body)
			expectError(t, rec, http.StatusUnauthorized, tt.message)
		})
	}

	rec := env.submitReading(t, "SENSOR-ZZ", "Bearer "+sn.AuthToken, body)
	expectError(t, rec, http.StatusUnauthorized, auth.ErrInvalidDeviceCredentials.Message)

	stored, err := env.sensors.GetByDeviceID(t.Context(), "SENSOR-A1")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if stored.LastSeen == nil || sn.LastSeen == nil || !stored.LastSeen.Equal(*sn.LastSeen) {
		t.Errorf("last_seen = %v after rejected readings, want %v", stored.LastSeen, sn.LastSeen)
	}
	if stored.BatteryLevel == nil || *stored.BatteryLevel != defaultBatteryLevel {
		t.Errorf("battery_level = %v after rejected readings, want %v", stored.BatteryLevel, defaultBatteryLevel)
	}
	if n, _ := env.sensors.CountReadings(t.Context(), stored.ID, stored.CreatedAt.AddDate(-1, 0, 0)); n != 0 { //nolint:errcheck // zero on error fails below
		t.Errorf("stored readings = %d, want 0", n)
	}
}

func TestSubmitReading_Accepted(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	sn := env.registerSensor(t, token, "SENSOR-A1", p.ID)

	rec := env.submitReading(t, "SENSOR-A1", "Bearer "+sn.AuthToken,
		`{"moisture_percent": 42.5, "temperature_celsius": 21.0, "battery_level": 75}`)
	expectStatus(t, rec, http.StatusCreated)

	reading := decodeBody[sensor.Reading](t, rec)
	if reading.MoisturePct != 42.5 {
		t.Errorf("moisture_pct = %v, want 42.5", reading.MoisturePct)
	}

	stored, err := env.sensors.GetByDeviceID(t.Context(), "SENSOR-A1")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if stored.LastSeen == nil || !stored.IsOnline {
		t.Errorf("last_seen = %v, is_online = %v, want set and online", stored.LastSeen, stored.IsOnline)
	}
	if stored.BatteryLevel == nil || *stored.BatteryLevel != 75 {
		t.Errorf("battery_level = %v, want 75", stored.BatteryLevel)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1/readings", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[readingListResponse](t, rec); list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1/readings/latest", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[sensor.Reading](t, rec); got.ID != reading.ID {
		t.Errorf("latest id = %d, want %d", got.ID, reading.ID)
	}
}

func TestSubmitReading_Invalid(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	sn := env.registerSensor(t, token, "SENSOR-A1", p.ID)

	rec := env.submitReading(t, "SENSOR-A1", "Bearer "+sn.AuthToken, `{"moisture_percent": 140}`)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestLatestReading_None(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	env.registerSensor(t, token, "SENSOR-A1", p.ID)

	rec := env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1/readings/latest", token, nil)
	expectError(t, rec, http.StatusNotFound, msgNoReadings)
}

func TestReadings_HoursRange(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")
	env.registerSensor(t, token, "SENSOR-A1", p.ID)

	for _, q := range []string{"hours=0", "hours=169", "hours=abc", "limit=1001"} {
		rec := env.do(t, http.MethodGet, "/api/v1/sensors/SENSOR-A1/readings?"+q, token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

// ─── Watering Tests ─────────────────────────────────────────────────

func TestWatering_TriggerAndComplete(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/watering/%d/trigger", p.ID), token, nil)
	expectStatus(t, rec, http.StatusCreated)
	ev := decodeBody[watering.Event](t, rec)
	if ev.Status != watering.StatusPending || ev.Trigger != watering.TriggerManual {
		t.Errorf("event = %s/%s, want pending/manual", ev.Status, ev.Trigger)
	}

	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/watering/events/%d", ev.ID), token, map[string]any{
		"status":   "completed",
		"water_ml": 250,
	})
	expectStatus(t, rec, http.StatusOK)
	done := decodeBody[watering.Event](t, rec)
	if done.CompletedTime == nil {
		t.Error("completed_time not stamped")
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/watering/%d/history", p.ID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	if hist := decodeBody[eventListResponse](t, rec); hist.Total != 1 {
		t.Errorf("history total = %d, want 1", hist.Total)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/watering/%d/statistics", p.ID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	stats := decodeBody[watering.Statistics](t, rec)
	if stats.TotalEvents != 1 || stats.TotalWaterML != 250 || stats.PeriodDays != 30 {
		t.Errorf("stats = %+v, want 1 event, 250 ml over 30 days", stats)
	}
}

func TestWatering_Validation(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/watering/%d/trigger?trigger=magic", p.ID), token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/watering/%d/statistics?days=3", p.ID), token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/watering/%d/trigger", p.ID), token, nil)
	ev := decodeBody[watering.Event](t, rec)
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/watering/events/%d", ev.ID), token, map[string]any{"status": "evaporated"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestWatering_EventOwnership(t *testing.T) {
	env := testServer(t)
	alice, aliceToken := env.createUser(t, "alice@example.com", true, false)
	_, bobToken := env.createUser(t, "bob@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/watering/%d/trigger", p.ID), aliceToken, nil)
	ev := decodeBody[watering.Event](t, rec)

	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/watering/events/%d", ev.ID), bobToken, map[string]any{"status": "completed"})
	expectError(t, rec, http.StatusForbidden, msgEventForbidden)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/watering/%d", ev.ID), bobToken, nil)
	expectError(t, rec, http.StatusForbidden, msgEventForbidden)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/watering/%d", ev.ID), aliceToken, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/watering/%d", ev.ID), aliceToken, nil)
	expectError(t, rec, http.StatusNotFound, msgEventNotFound)
}

func TestWatering_FailureRaisesAlert(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	p := env.createPlant(t, alice.ID, "Monty")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/watering/%d/trigger", p.ID), token, nil)
	ev := decodeBody[watering.Event](t, rec)

	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/watering/events/%d", ev.ID), token, map[string]any{
		"status":        "failed",
		"error_message": "pump jammed",
	})
	expectStatus(t, rec, http.StatusOK)

	alerts, err := env.alerts.List(t.Context(), alice.ID, alert.Filter{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != alert.TypeWateringFailed {
		t.Fatalf("alerts = %+v, want one watering_failed", alerts)
	}
}

// ─── Alert Tests ────────────────────────────────────────────────────

// lowMoistureAlert submits a dry reading for a new plant of the owner and
// returns the alert it raised.
func (e *testEnv) lowMoistureAlert(t *testing.T, ownerID int64, token, deviceID string) alert.Alert {
	t.Helper()

	p := e.createPlant(t, ownerID, "Thirsty "+deviceID)
	sn := e.registerSensor(t, token, deviceID, p.ID)
	rec := e.submitReading(t, deviceID, "Bearer "+sn.AuthToken, `{"moisture_percent": 10}`)
	expectStatus(t, rec, http.StatusCreated)

	alerts, err := e.alerts.List(t.Context(), ownerID, alert.Filter{Limit: 100})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, a := range alerts {
		if a.Type == alert.TypeLowMoisture && a.UserPlantID != nil && *a.UserPlantID == p.ID {
			return a
		}
	}
	t.Fatalf("no low_moisture alert for plant %d in %+v", p.ID, alerts)
	return alert.Alert{}
}

func TestAlerts_ListAndMarkRead(t *testing.T) {
	env := testServer(t)
	alice, token := env.createUser(t, "alice@example.com", true, false)
	first := env.lowMoistureAlert(t, alice.ID, token, "SENSOR-A1")
	env.lowMoistureAlert(t, alice.ID, token, "SENSOR-A2")

	rec := env.do(t, http.MethodGet, "/api/v1/alerts?is_read=false", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[alertListResponse](t, rec); list.Total != 2 {
		t.Errorf("unread total = %d, want 2", list.Total)
	}

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/alerts/%d/mark-read", first.ID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	read := decodeBody[alert.Alert](t, rec)
	if !read.IsRead || read.ReadAt == nil {
		t.Errorf("is_read = %v, read_at = %v, want read", read.IsRead, read.ReadAt)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/alerts/mark-all-read", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if body := decodeBody[markAllReadResponse](t, rec); body.Count != 1 || body.Message != "Marked 1 alerts as read" {
		t.Errorf("mark-all-read = %+v, want count 1", body)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts?is_read=false", token, nil)
	if list := decodeBody[alertListResponse](t, rec); list.Total != 0 {
		t.Errorf("unread total = %d, want 0", list.Total)
	}
}

func TestAlerts_Ownership(t *testing.T) {
	env := testServer(t)
	alice, aliceToken := env.createUser(t, "alice@example.com", true, false)
	_, bobToken := env.createUser(t, "bob@example.com", true, false)
	a := env.lowMoistureAlert(t, alice.ID, aliceToken, "SENSOR-A1")
	path := fmt.Sprintf("/api/v1/alerts/%d", a.ID)

	rec := env.do(t, http.MethodGet, path, bobToken, nil)
	expectError(t, rec, http.StatusForbidden, msgAlertForbidden)

	rec = env.do(t, http.MethodPost, path+"/mark-read", bobToken, nil)
	expectError(t, rec, http.StatusForbidden, msgAlertForbidden)

	rec = env.do(t, http.MethodDelete, path, bobToken, nil)
	expectError(t, rec, http.StatusForbidden, msgAlertForbidden)

	rec = env.do(t, http.MethodPost, "/api/v1/alerts/mark-all-read", bobToken, nil)
	expectStatus(t, rec, http.StatusOK)

	got, err := env.alerts.GetByID(t.Context(), a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.IsRead {
		t.Error("another user's mark-all-read touched the alert")
	}

	rec = env.do(t, http.MethodDelete, path, aliceToken, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodGet, path, aliceToken, nil)
	expectError(t, rec, http.StatusNotFound, msgAlertNotFound)
}
