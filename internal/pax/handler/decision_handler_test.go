package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/clock"
	"github.com/fernandocuesta/ptp-pax/internal/pax/handler"
	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/service"
	"github.com/fernandocuesta/ptp-pax/internal/pax/testutil"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var testSites = map[string]string{"Lote 95": "L95"}

// testServer wires the submission and panel routes against a test schema with
// a pinned clock, mirroring the production route layout.
func testServer(t *testing.T, maxCapacity int, now time.Time) *gin.Engine {
	t.Helper()

	db := testutil.SetupTestDB(t)

	chain, err := workflow.NewChain([]workflow.Gate{
		{ID: "contratos", Name: "Administración de Contratos"},
		{ID: "security", Name: "Security"},
		{ID: "qhs", Name: "QHS"},
		{ID: "logistica", Name: "Logística"},
	}, "logistica")
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	repo := repository.NewSolicitudRepository(db, chain.CapacityGateID())
	calc := workflow.NewCalculator(maxCapacity, chain.CapacityGateID())
	clk := clock.NewFixed(now)
	logger := zap.NewNop()

	solH := handler.NewSolicitudHandler(
		service.NewSolicitudService(repo, chain, calc, clk, testSites, 30, logger))
	decH := handler.NewDecisionHandler(
		service.NewDecisionService(repo, chain, maxCapacity, clk, logger))

	r := testutil.SetupRouter()
	api := r.Group("/api/v1")
	api.POST("/solicitudes", solH.Create)
	api.GET("/solicitudes/:codigo", solH.Track)
	api.GET("/cupos", solH.OpenDates)

	panel := testutil.PanelGroup(r, "/api/v1/panel")
	panel.GET("/:gate/solicitudes", decH.ListActionable)
	panel.POST("/:gate/decisiones", decH.Decide)

	return r
}

func submitReq(entry, exit string) service.CreateSolicitudReq {
	return service.CreateSolicitudReq{
		Site:           "Lote 95",
		RequesterName:  "María Torres",
		RequesterEmail: "maria.torres@contratista.pe",
		PassengerName:  "Juan Pérez",
		DocumentID:     "45678912",
		BirthDate:      "1990-03-15",
		Nationality:    "Peruana",
		OriginCity:     "Iquitos",
		Position:       "Supervisor HSE",
		Company:        "Servicios Petroleros SAC",
		EntryDate:      entry,
		ExitDate:       exit,
		StayDays:       "14",
	}
}

func submit(t *testing.T, r *gin.Engine, entry, exit string) string {
	t.Helper()
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/solicitudes", submitReq(entry, exit), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status %d, body %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	return data["tracking_code"].(string)
}

func decide(t *testing.T, r *gin.Engine, gate, code, decision, comment, token string) int {
	t.Helper()
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/panel/"+gate+"/decisiones", map[string]interface{}{
		"tracking_code": code,
		"decision":      decision,
		"comment":       comment,
	}, token)
	return w.Code
}

func TestFullApprovalFlow(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 60, now)

	code := submit(t, r, "2025-06-01", "2025-06-15")

	steps := []struct {
		gate, approver string
	}{
		{"contratos", "María Torres"},
		{"security", "Luis Ramos"},
		{"qhs", "Ana Quispe"},
		{"logistica", "Carlos Díaz"},
	}
	for _, st := range steps {
		token := testutil.GenerateTestToken(st.approver, st.gate)
		if got := decide(t, r, st.gate, code, "aprobar", "", token); got != http.StatusOK {
			t.Fatalf("approve at %s: status %d", st.gate, got)
		}
	}

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/solicitudes/"+code, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("track: status %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["current_gate"] != "" {
		t.Errorf("current_gate = %v, want none after full approval", data["current_gate"])
	}
	sol := data["solicitud"].(map[string]interface{})
	for _, stage := range sol["stages"].([]interface{}) {
		st := stage.(map[string]interface{})
		if st["status"] != "aprobada" {
			t.Errorf("stage %v status = %v, want aprobada", st["gate_id"], st["status"])
		}
	}
}

func TestPanelRejectsWrongArea(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 60, now)
	code := submit(t, r, "2025-06-01", "2025-06-15")

	// token de security intentando decidir en contratos
	token := testutil.GenerateTestToken("Luis Ramos", "security")
	if got := decide(t, r, "contratos", code, "aprobar", "", token); got != http.StatusForbidden {
		t.Errorf("wrong area: status %d, want 403", got)
	}

	// sin token
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/panel/contratos/solicitudes", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", w.Code)
	}
}

func TestDecisionOutOfOrderConflicts(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 60, now)
	code := submit(t, r, "2025-06-01", "2025-06-15")

	contratos := testutil.GenerateTestToken("María Torres", "contratos")
	if got := decide(t, r, "contratos", code, "aprobar", "", contratos); got != http.StatusOK {
		t.Fatalf("first approval: status %d", got)
	}

	// repetir la misma decisión: la etapa ya no está pendiente
	if got := decide(t, r, "contratos", code, "aprobar", "", contratos); got != http.StatusConflict {
		t.Errorf("repeated decision: status %d, want 409", got)
	}

	// saltarse security: qhs todavía no puede actuar
	qhs := testutil.GenerateTestToken("Ana Quispe", "qhs")
	if got := decide(t, r, "qhs", code, "aprobar", "", qhs); got != http.StatusConflict {
		t.Errorf("out-of-order decision: status %d, want 409", got)
	}
}

func TestRejectionStopsFlow(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 60, now)
	code := submit(t, r, "2025-06-01", "2025-06-15")

	contratos := testutil.GenerateTestToken("María Torres", "contratos")
	if got := decide(t, r, "contratos", code, "aprobar", "", contratos); got != http.StatusOK {
		t.Fatalf("approve contratos: status %d", got)
	}

	security := testutil.GenerateTestToken("Y", "security")
	if got := decide(t, r, "security", code, "rechazar", "no cumple", security); got != http.StatusOK {
		t.Fatalf("reject security: status %d", got)
	}

	// la solicitud ya no aparece en ningún panel
	qhs := testutil.GenerateTestToken("Ana Quispe", "qhs")
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/panel/qhs/solicitudes", nil, qhs)
	data := testutil.ParseResponse(w)["data"].([]interface{})
	if len(data) != 0 {
		t.Errorf("rejected record still actionable at qhs: %v", data)
	}

	if got := decide(t, r, "qhs", code, "aprobar", "", qhs); got != http.StatusConflict {
		t.Errorf("decision after rejection: status %d, want 409", got)
	}

	// el rechazo queda registrado con su autor y comentario
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/solicitudes/"+code, nil, "")
	sol := testutil.ParseResponse(w)["data"].(map[string]interface{})["solicitud"].(map[string]interface{})
	for _, stage := range sol["stages"].([]interface{}) {
		st := stage.(map[string]interface{})
		if st["gate_id"] == "security" {
			if st["status"] != "rechazada" || st["approver"] != "Y" || st["comment"] != "no cumple" {
				t.Errorf("rejection metadata: %v", st)
			}
		}
	}
}

func TestCapacityExhaustedAtLogistics(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 2, now)

	tokens := map[string]string{
		"contratos": testutil.GenerateTestToken("María Torres", "contratos"),
		"security":  testutil.GenerateTestToken("Luis Ramos", "security"),
		"qhs":       testutil.GenerateTestToken("Ana Quispe", "qhs"),
		"logistica": testutil.GenerateTestToken("Carlos Díaz", "logistica"),
	}

	approveAll := func(code string) int {
		for _, gate := range []string{"contratos", "security", "qhs", "logistica"} {
			got := decide(t, r, gate, code, "aprobar", "", tokens[gate])
			if gate == "logistica" {
				return got
			}
			if got != http.StatusOK {
				t.Fatalf("approve at %s: status %d", gate, got)
			}
		}
		return 0
	}

	codes := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, submit(t, r, "2025-06-01", "2025-06-15"))
	}

	results := make([]int, 0, 3)
	for _, code := range codes {
		results = append(results, approveAll(code))
	}

	if results[0] != http.StatusOK || results[1] != http.StatusOK {
		t.Fatalf("first two seats: %v", results)
	}
	if results[2] != http.StatusConflict {
		t.Errorf("third seat: status %d, want 409", results[2])
	}

	// la solicitud rebotada sigue pendiente en logística
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/panel/logistica/solicitudes", nil, tokens["logistica"])
	data := testutil.ParseResponse(w)["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("actionable at logistica = %d, want the bounced record", len(data))
	}
}

func TestSubmissionBouncedWhenDayFull(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 1, now)

	tokens := map[string]string{
		"contratos": testutil.GenerateTestToken("María Torres", "contratos"),
		"security":  testutil.GenerateTestToken("Luis Ramos", "security"),
		"qhs":       testutil.GenerateTestToken("Ana Quispe", "qhs"),
		"logistica": testutil.GenerateTestToken("Carlos Díaz", "logistica"),
	}

	code := submit(t, r, "2025-06-01", "2025-06-15")
	for _, gate := range []string{"contratos", "security", "qhs", "logistica"} {
		if got := decide(t, r, gate, code, "aprobar", "", tokens[gate]); got != http.StatusOK {
			t.Fatalf("approve at %s: status %d", gate, got)
		}
	}

	// el día quedó lleno: nuevas solicitudes para esa fecha rebotan al enviar
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/solicitudes", submitReq("2025-06-01", "2025-06-15"), "")
	if w.Code != http.StatusConflict {
		t.Errorf("submission on full day: status %d, want 409", w.Code)
	}

	// otra fecha sigue abierta
	if code := submit(t, r, "2025-06-02", "2025-06-15"); code == "" {
		t.Error("submission for open day bounced")
	}

	// el listado de cupos omite la fecha llena
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/cupos?site=Lote 95", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("cupos: status %d", w.Code)
	}
	for _, d := range testutil.ParseResponse(w)["data"].([]interface{}) {
		od := d.(map[string]interface{})
		if date, _ := od["date"].(string); len(date) >= 10 && date[:10] == "2025-06-01" {
			t.Errorf("full date listed as open: %v", od)
		}
	}
}

func TestValidationErrorsOnSubmit(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 60, now)

	// salida anterior al ingreso
	req := submitReq("2025-06-15", "2025-06-01")
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/solicitudes", req, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("exit before entry: status %d, want 400", w.Code)
	}
	resp := testutil.ParseResponse(w)
	fields := resp["data"].(map[string]interface{})["fields"].([]interface{})
	found := false
	for _, f := range fields {
		if f.(map[string]interface{})["field"] == "exit_date" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing exit_date field error: %v", fields)
	}

	// fecha malformada
	req = submitReq("01/06/2025", "2025-06-15")
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/solicitudes", req, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed date: status %d, want 400", w.Code)
	}

	// código de seguimiento inexistente
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/solicitudes/L95-20250527-9999", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown tracking code: status %d, want 404", w.Code)
	}
}

func TestTrackingCodeFormat(t *testing.T) {
	now := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	r := testServer(t, 60, now)

	for i := 1; i <= 2; i++ {
		code := submit(t, r, "2025-06-01", "2025-06-15")
		want := fmt.Sprintf("L95-20250527-%04d", i)
		if code != want {
			t.Errorf("tracking code = %q, want %q", code, want)
		}
	}
}
