package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/testutil"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/google/uuid"
)

func testChain(t *testing.T) *workflow.Chain {
	t.Helper()
	chain, err := workflow.NewChain([]workflow.Gate{
		{ID: "contratos", Name: "Administración de Contratos"},
		{ID: "security", Name: "Security"},
		{ID: "qhs", Name: "QHS"},
		{ID: "logistica", Name: "Logística"},
	}, "logistica")
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return chain
}

func newSolicitud(chain *workflow.Chain, entry time.Time) *entity.Solicitud {
	s := &entity.Solicitud{
		ID:             uuid.New().String(),
		Site:           "Lote 95",
		RequesterName:  "María Torres",
		RequesterEmail: "maria.torres@contratista.pe",
		PassengerName:  "Juan Pérez",
		DocumentID:     "45678912",
		BirthDate:      time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC),
		Company:        "Servicios Petroleros SAC",
		EntryDate:      entry,
		ExitDate:       entry.AddDate(0, 0, 14),
	}
	s.Stages = chain.NewStages(s.ID)
	return s
}

func TestCreateAssignsSequentialTrackingCodes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSolicitudRepository(db, "logistica")
	chain := testChain(t)
	ctx := context.Background()

	now := time.Date(2025, 5, 27, 10, 0, 0, 0, time.UTC)
	entry := now.AddDate(0, 0, 5)

	for i := 1; i <= 3; i++ {
		s := newSolicitud(chain, entry)
		if err := repo.Create(ctx, s, "L95", now); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		want := fmt.Sprintf("L95-20250527-%04d", i)
		if s.TrackingCode != want {
			t.Errorf("tracking code = %q, want %q", s.TrackingCode, want)
		}
	}

	// otro lote arranca su propio correlativo
	other := newSolicitud(chain, entry)
	other.Site = "Lote 131"
	if err := repo.Create(ctx, other, "L131", now); err != nil {
		t.Fatalf("Create other site: %v", err)
	}
	if other.TrackingCode != "L131-20250527-0001" {
		t.Errorf("tracking code = %q, want L131-20250527-0001", other.TrackingCode)
	}

	// y otro día también
	nextDay := newSolicitud(chain, entry)
	if err := repo.Create(ctx, nextDay, "L95", now.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("Create next day: %v", err)
	}
	if nextDay.TrackingCode != "L95-20250528-0001" {
		t.Errorf("tracking code = %q, want L95-20250528-0001", nextDay.TrackingCode)
	}
}

func TestFindByTrackingCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSolicitudRepository(db, "logistica")
	chain := testChain(t)
	ctx := context.Background()

	now := time.Date(2025, 5, 27, 10, 0, 0, 0, time.UTC)
	s := newSolicitud(chain, now.AddDate(0, 0, 5))
	if err := repo.Create(ctx, s, "L95", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByTrackingCode(ctx, s.TrackingCode)
	if err != nil {
		t.Fatalf("FindByTrackingCode: %v", err)
	}
	if got.ID != s.ID || got.PassengerName != "Juan Pérez" {
		t.Errorf("loaded solicitud mismatch: %+v", got)
	}
	if len(got.Stages) != 4 {
		t.Fatalf("stages = %d, want 4", len(got.Stages))
	}
	for i, st := range got.Stages {
		if st.Sequence != i {
			t.Errorf("stages out of order: %d at index %d", st.Sequence, i)
		}
		if st.Status != entity.StageStatusPending {
			t.Errorf("stage %s status = %q, want pendiente", st.GateID, st.Status)
		}
	}

	if _, err := repo.FindByTrackingCode(ctx, "L95-20250527-9999"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing code: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStageFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSolicitudRepository(db, "logistica")
	chain := testChain(t)
	ctx := context.Background()

	now := time.Date(2025, 5, 27, 10, 0, 0, 0, time.UTC)
	s := newSolicitud(chain, now.AddDate(0, 0, 5))
	if err := repo.Create(ctx, s, "L95", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	decidedAt := now.Add(2 * time.Hour)
	err := repo.UpdateStageFields(ctx, s.ID, "contratos", entity.StageStatusApproved, "María Torres", "ok", decidedAt)
	if err != nil {
		t.Fatalf("UpdateStageFields: %v", err)
	}

	got, err := repo.FindByTrackingCode(ctx, s.TrackingCode)
	if err != nil {
		t.Fatalf("FindByTrackingCode: %v", err)
	}
	st := got.StageFor("contratos")
	if st.Status != entity.StageStatusApproved || st.Approver != "María Torres" || st.Comment != "ok" {
		t.Errorf("stage not updated atomically: %+v", st)
	}
	if st.DecidedAt == nil || !st.DecidedAt.Equal(decidedAt) {
		t.Errorf("DecidedAt = %v, want %v", st.DecidedAt, decidedAt)
	}

	// las demás etapas quedan intactas
	for _, gate := range []string{"security", "qhs", "logistica"} {
		if other := got.StageFor(gate); other.Status != entity.StageStatusPending || other.Approver != "" {
			t.Errorf("stage %s touched: %+v", gate, other)
		}
	}

	err = repo.UpdateStageFields(ctx, s.ID, "aduanas", entity.StageStatusApproved, "X", "", decidedAt)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown gate: err = %v, want ErrNotFound", err)
	}
}

func TestCountOccupied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSolicitudRepository(db, "logistica")
	chain := testChain(t)
	ctx := context.Background()

	now := time.Date(2025, 5, 27, 10, 0, 0, 0, time.UTC)
	entry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	decidedAt := now.Add(time.Hour)

	// dos aprobadas en logística para la fecha objetivo
	for i := 0; i < 2; i++ {
		s := newSolicitud(chain, entry)
		if err := repo.Create(ctx, s, "L95", now); err != nil {
			t.Fatalf("Create: %v", err)
		}
		for _, gate := range []string{"contratos", "security", "qhs", "logistica"} {
			if err := repo.UpdateStageFields(ctx, s.ID, gate, entity.StageStatusApproved, "A", "", decidedAt); err != nil {
				t.Fatalf("UpdateStageFields: %v", err)
			}
		}
	}

	// pendiente en logística: no ocupa cupo
	pending := newSolicitud(chain, entry)
	if err := repo.Create(ctx, pending, "L95", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// aprobada pero para otra fecha
	otherDay := newSolicitud(chain, entry.AddDate(0, 0, 1))
	if err := repo.Create(ctx, otherDay, "L95", now); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateStageFields(ctx, otherDay.ID, "logistica", entity.StageStatusApproved, "A", "", decidedAt); err != nil {
		t.Fatalf("UpdateStageFields: %v", err)
	}

	n, err := repo.CountOccupied(ctx, "Lote 95", entry)
	if err != nil {
		t.Fatalf("CountOccupied: %v", err)
	}
	if n != 2 {
		t.Errorf("CountOccupied = %d, want 2", n)
	}
}

func TestListPendingForGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSolicitudRepository(db, "logistica")
	chain := testChain(t)
	ctx := context.Background()

	now := time.Date(2025, 5, 27, 10, 0, 0, 0, time.UTC)
	entry := now.AddDate(0, 0, 5)

	first := newSolicitud(chain, entry)
	if err := repo.Create(ctx, first, "L95", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// avanzada hasta security: sigue pendiente en qhs y logística
	advanced := newSolicitud(chain, entry)
	if err := repo.Create(ctx, advanced, "L95", now); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateStageFields(ctx, advanced.ID, "contratos", entity.StageStatusApproved, "A", "", now); err != nil {
		t.Fatalf("UpdateStageFields: %v", err)
	}

	list, err := repo.ListPendingForGate(ctx, "contratos")
	if err != nil {
		t.Fatalf("ListPendingForGate: %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Errorf("pending at contratos = %d records, want only the fresh one", len(list))
	}

	list, err = repo.ListPendingForGate(ctx, "security")
	if err != nil {
		t.Fatalf("ListPendingForGate: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("pending at security = %d records, want 2", len(list))
	}
	for i := range list {
		if len(list[i].Stages) != 4 {
			t.Errorf("record %s loaded without stages", list[i].TrackingCode)
		}
	}
}
