package workflow

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
)

var emailPattern = regexp.MustCompile(`^[\w\.-]+@[\w\.-]+\.\w+$`)

// capexPrefix marks capital-expenditure codes (authorization for expenditure).
const capexPrefix = "AFE-"

const minBirthYear = 1950

// ValidateSubmission checks a candidate solicitud before any store write.
// now must be site-local time. siteCodes is the configured site → short code
// map; an unknown site is a validation failure, not a server error.
func ValidateSubmission(s *entity.Solicitud, now time.Time, siteCodes map[string]string) error {
	verr := &ValidationError{}

	required := []struct {
		field, value, label string
	}{
		{"requester_name", s.RequesterName, "el responsable de la solicitud"},
		{"requester_email", s.RequesterEmail, "el correo del responsable"},
		{"passenger_name", s.PassengerName, "el nombre del pasajero"},
		{"document_id", s.DocumentID, "el DNI / CE del pasajero"},
		{"nationality", s.Nationality, "la nacionalidad"},
		{"origin_city", s.OriginCity, "la procedencia"},
		{"position", s.Position, "el puesto / cargo"},
		{"company", s.Company, "la empresa contratista"},
		{"stay_days", s.StayDays, "el tiempo estimado de permanencia"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.add(r.field, "falta completar "+r.label)
		}
	}

	if s.RequesterEmail != "" && !emailPattern.MatchString(s.RequesterEmail) {
		verr.add("requester_email", "el correo electrónico no es válido, ejemplo: nombre@dominio.com")
	}

	if _, ok := siteCodes[s.Site]; !ok {
		verr.add("site", "el lote de destino no está habilitado: "+s.Site)
	}

	today := truncateDay(now)
	if s.EntryDate.Before(today) {
		verr.add("entry_date", "la fecha de ingreso no puede ser anterior a hoy")
	}
	if s.ExitDate.Before(s.EntryDate) {
		verr.add("exit_date", "la fecha de salida no puede ser anterior a la fecha de ingreso")
	}

	minBirth := time.Date(minBirthYear, 1, 1, 0, 0, 0, 0, now.Location())
	maxBirth := today.AddDate(-18, 0, 0)
	if s.BirthDate.Before(minBirth) || s.BirthDate.After(maxBirth) {
		verr.add("birth_date", "la fecha de nacimiento debe estar entre 1950 y una edad mínima de 18 años")
	}

	if s.CostType != "" {
		switch s.CostType {
		case entity.CostTypeCapex:
			if !strings.HasPrefix(s.CostCode, capexPrefix) {
				verr.add("cost_code", "un código CAPEX debe llevar el prefijo "+capexPrefix)
			}
		case entity.CostTypeOpex:
			if !isNumeric(s.CostCode) {
				verr.add("cost_code", "un código OPEX debe ser numérico")
			}
		default:
			verr.add("cost_type", "tipo de imputación desconocido: "+s.CostType)
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
