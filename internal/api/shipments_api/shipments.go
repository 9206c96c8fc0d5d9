package shipments_api

import (
	"net/http"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/services/shipments"
	"github.com/go-chi/chi/v5"
)

type shipmentResponse struct {
	Carrier  models.Carrier    `json:"carrier"`
	Shipment models.Shipment   `json:"shipment"`
	Changes  models.FieldDiffs `json:"changes,omitempty"`
	Created  *bool             `json:"created,omitempty"`
}

func newShipmentResponse(res *resolver.Resolution) shipmentResponse {
	return shipmentResponse{Carrier: res.Variant.Carrier, Shipment: res.Record}
}

type createRequest struct {
	Carrier string         `json:"carrier" validate:"required"`
	Client  string         `json:"client"`
	Fields  map[string]any `json:"fields" validate:"required"`
}

type bulkUpdateRequest struct {
	IDs     []int64 `json:"ids" validate:"required,min=1,max=10000,dive,gt=0"`
	Status  string  `json:"status" validate:"required"`
	Company string  `json:"company"`
}

func (a *API) getShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hint, ok := carrierHint(w, r, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}
	res, err := a.shipments.Get(r.Context(), id, hint)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShipmentResponse(res))
}

func (a *API) shipmentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hint, ok := carrierHint(w, r, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}
	entries, err := a.shipments.History(r.Context(), id, hint)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) createShipment(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !a.decode(w, r, &req) {
		return
	}
	v, err := carriers.Lookup(req.Carrier)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.shipments.Create(r.Context(), shipments.CreateInput{
		Variant: v,
		Client:  req.Client,
		Fields:  req.Fields,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := newShipmentResponse(res.Resolution)
	resp.Created = &res.Created
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// patchShipment: тело - плоский объект {колонка: значение}.
func (a *API) patchShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hint, ok := carrierHint(w, r, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}
	var fields map[string]any
	if !readJSON(w, r, &fields) {
		return
	}
	if len(fields) == 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "No hay campos para actualizar", nil)
		return
	}
	res, diffs, err := a.shipments.Update(r.Context(), id, hint, fields)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := newShipmentResponse(res)
	resp.Changes = diffs
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) deleteShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hint, ok := carrierHint(w, r, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}
	if err := a.shipments.Delete(r.Context(), id, hint); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if !a.decode(w, r, &req) {
		return
	}
	hint, ok := carrierHint(w, r, req.Company)
	if !ok {
		return
	}
	res, err := a.shipments.BulkUpdateStatus(r.Context(), req.IDs, req.Status, hint)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"carrier": res.Carrier,
		"count":   res.Count,
	})
}

func (a *API) tracking(w http.ResponseWriter, r *http.Request) {
	t, err := a.shipments.Track(r.Context(), chi.URLParam(r, "guia"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	st, err := a.shipments.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
