package intelligence

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sadoj/intel-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encode response: %v", err)
	}
}

type mutationResponse struct {
	Success bool   `json:"success"`
	ID      uint   `json:"id,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error kinds onto statuses. Missing rows are a 400 on
// mutations and a 404 on reads.
func writeError(w http.ResponseWriter, r *http.Request, err error, read bool) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	switch {
	case errors.Is(err, ErrGateClosed):
		status, msg = http.StatusForbidden, "Edit mode not enabled"
	case errors.Is(err, ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNotFound):
		status, msg = http.StatusBadRequest, err.Error()
		if read {
			status = http.StatusNotFound
		}
	case errors.Is(err, ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	default:
		logrus.WithError(err).Errorf("%s %s", r.Method, r.URL.Path)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func actorFrom(r *http.Request) Actor {
	session, _ := utils.GetSessionFromContext(r.Context())
	return Actor{UserID: session.UserID, EditMode: session.EditMode}
}

func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalid("invalid id %q", chi.URLParam(r, name))
	}
	return uint(id), nil
}

// create, update and remove hold the request plumbing shared by every entity.

func create[In any](allowForm bool, what string, fn func(*http.Request, Actor, In) (uint, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)
		if err := actor.checkGate(); err != nil {
			writeError(w, r, err, false)
			return
		}

		var in In
		if err := decodeRequest(w, r, &in, allowForm); err != nil {
			writeError(w, r, err, false)
			return
		}
		id, err := fn(r, actor, in)
		if err != nil {
			writeError(w, r, err, false)
			return
		}

		logrus.Infof("%s %d created by %s", what, id, actor.UserID)
		writeJSON(w, http.StatusCreated, mutationResponse{
			Success: true,
			ID:      id,
			Message: what + " created successfully",
		})
	}
}

func update[In any](allowForm bool, what string, fn func(*http.Request, Actor, uint, In) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)
		if err := actor.checkGate(); err != nil {
			writeError(w, r, err, false)
			return
		}

		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, false)
			return
		}
		var in In
		if err := decodeRequest(w, r, &in, allowForm); err != nil {
			writeError(w, r, err, false)
			return
		}
		if err := fn(r, actor, id, in); err != nil {
			writeError(w, r, err, false)
			return
		}

		logrus.Infof("%s %d updated by %s", what, id, actor.UserID)
		writeJSON(w, http.StatusOK, mutationResponse{
			Success: true,
			Message: what + " updated successfully",
		})
	}
}

func remove(what string, fn func(*http.Request, Actor, uint) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)
		id, err := pathID(r, "id")
		if err != nil {
			if gateErr := actor.checkGate(); gateErr != nil {
				err = gateErr
			}
			writeError(w, r, err, false)
			return
		}
		if err := fn(r, actor, id); err != nil {
			writeError(w, r, err, false)
			return
		}

		logrus.Infof("%s %d deleted by %s", what, id, actor.UserID)
		writeJSON(w, http.StatusOK, mutationResponse{
			Success: true,
			Message: what + " deleted successfully",
		})
	}
}

func (h *Handler) CreateGang() http.HandlerFunc {
	return create(false, "Gang", func(r *http.Request, a Actor, in GangInput) (uint, error) {
		g, err := h.svc.CreateGang(r.Context(), a, in)
		return g.ID, err
	})
}

func (h *Handler) UpdateGang() http.HandlerFunc {
	return update(false, "Gang", func(r *http.Request, a Actor, id uint, in GangInput) error {
		_, err := h.svc.UpdateGang(r.Context(), a, id, in)
		return err
	})
}

func (h *Handler) DeleteGang() http.HandlerFunc {
	return remove("Gang", func(r *http.Request, a Actor, id uint) error {
		return h.svc.DeleteGang(r.Context(), a, id)
	})
}

func (h *Handler) CreateMember() http.HandlerFunc {
	return create(false, "Member", func(r *http.Request, a Actor, in MemberInput) (uint, error) {
		m, err := h.svc.CreateMember(r.Context(), a, in)
		return m.ID, err
	})
}

func (h *Handler) UpdateMember() http.HandlerFunc {
	return update(false, "Member", func(r *http.Request, a Actor, id uint, in MemberInput) error {
		_, err := h.svc.UpdateMember(r.Context(), a, id, in)
		return err
	})
}

func (h *Handler) DeleteMember() http.HandlerFunc {
	return remove("Member", func(r *http.Request, a Actor, id uint) error {
		return h.svc.DeleteMember(r.Context(), a, id)
	})
}

func (h *Handler) CreateIncident() http.HandlerFunc {
	return create(false, "Incident", func(r *http.Request, a Actor, in IncidentInput) (uint, error) {
		i, err := h.svc.CreateIncident(r.Context(), a, in)
		return i.ID, err
	})
}

func (h *Handler) UpdateIncident() http.HandlerFunc {
	return update(false, "Incident", func(r *http.Request, a Actor, id uint, in IncidentInput) error {
		_, err := h.svc.UpdateIncident(r.Context(), a, id, in)
		return err
	})
}

func (h *Handler) DeleteIncident() http.HandlerFunc {
	return remove("Incident", func(r *http.Request, a Actor, id uint) error {
		return h.svc.DeleteIncident(r.Context(), a, id)
	})
}

// Case endpoints also take forms, which is how the case editor uploads.

func (h *Handler) CreateCase() http.HandlerFunc {
	return create(true, "Case", func(r *http.Request, a Actor, in CaseFileInput) (uint, error) {
		c, err := h.svc.CreateCase(r.Context(), a, in)
		return c.ID, err
	})
}

func (h *Handler) UpdateCase() http.HandlerFunc {
	return update(true, "Case", func(r *http.Request, a Actor, id uint, in CaseFileInput) error {
		_, err := h.svc.UpdateCase(r.Context(), a, id, in)
		return err
	})
}

func (h *Handler) DeleteCase() http.HandlerFunc {
	return remove("Case", func(r *http.Request, a Actor, id uint) error {
		return h.svc.DeleteCase(r.Context(), a, id)
	})
}

func (h *Handler) CreateRelationship() http.HandlerFunc {
	return create(false, "Relationship", func(r *http.Request, a Actor, in RelationshipInput) (uint, error) {
		rel, err := h.svc.CreateRelationship(r.Context(), a, in)
		return rel.ID, err
	})
}

func (h *Handler) UpdateRelationship() http.HandlerFunc {
	return update(false, "Relationship", func(r *http.Request, a Actor, id uint, in RelationshipInput) error {
		_, err := h.svc.UpdateRelationship(r.Context(), a, id, in)
		return err
	})
}

func (h *Handler) DeleteRelationship() http.HandlerFunc {
	return remove("Relationship", func(r *http.Request, a Actor, id uint) error {
		return h.svc.DeleteRelationship(r.Context(), a, id)
	})
}

// Reads.

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) ListGangs(w http.ResponseWriter, r *http.Request) {
	roster, err := h.svc.GangRoster(r.Context())
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (h *Handler) GetGang(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	gang, err := h.svc.GetGang(r.Context(), id)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, gang)
}

func (h *Handler) Territories(w http.ResponseWriter, r *http.Request) {
	gangs, err := h.svc.Territories(r.Context())
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, gangs)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	var f MemberFilter
	if raw := r.URL.Query().Get("gang"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, r, invalid("invalid gang filter %q", raw), true)
			return
		}
		gangID := uint(id)
		f.GangID = &gangID
	}
	if raw := r.URL.Query().Get("threat"); raw != "" {
		threat, err := ParseEnum[ThreatLevel]("threat level", raw)
		if err != nil {
			writeError(w, r, err, true)
			return
		}
		f.Threat = &threat
	}

	members, err := h.svc.MemberRoster(r.Context(), f)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	member, err := h.svc.GetMember(r.Context(), id)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	var f IncidentFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := ParseEnum[IncidentStatus]("incident status", raw)
		if err != nil {
			writeError(w, r, err, true)
			return
		}
		f.Status = &status
	}
	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity, err := ParseEnum[ThreatLevel]("severity", raw)
		if err != nil {
			writeError(w, r, err, true)
			return
		}
		f.Severity = &severity
	}

	incidents, err := h.svc.IncidentList(r.Context(), f)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, incidents)
}

func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	incident, err := h.svc.GetIncident(r.Context(), id)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (h *Handler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := h.svc.RelationshipList(r.Context())
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (h *Handler) GetRelationship(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	rel, err := h.svc.GetRelationship(r.Context(), id)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	var f CaseFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := ParseEnum[CaseStatus]("case status", raw)
		if err != nil {
			writeError(w, r, err, true)
			return
		}
		f.Status = &status
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority, err := ParseEnum[CasePriority]("case priority", raw)
		if err != nil {
			writeError(w, r, err, true)
			return
		}
		f.Priority = &priority
	}

	cases, err := h.svc.CaseList(r.Context(), f)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	c, err := h.svc.GetCase(r.Context(), id)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
