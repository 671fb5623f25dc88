package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/mesas-live/reservation"
	"github.com/yeremiapane/mesas-live/utils"
)

var errInternal = errors.New("internal server error")

type TableController struct {
	Engine *reservation.Engine
}

func NewTableController(engine *reservation.Engine) *TableController {
	return &TableController{Engine: engine}
}

type partyRequest struct {
	Name      string `json:"name"`
	SeatCount *int   `json:"seatCount"`
}

func (r partyRequest) party() reservation.Party {
	p := reservation.Party{Name: r.Name}
	if r.SeatCount != nil {
		p.SeatCount = *r.SeatCount
	}
	return p
}

type occupancyRequest struct {
	partyRequest
	Occupied *bool `json:"occupied"`
}

// GetAllTables -> menampilkan seluruh meja
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Engine.List(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// ReserveTable -> klaim meja yang masih kosong
func (tc *TableController) ReserveTable(c *gin.Context) {
	id, req, ok := bindParty(c)
	if !ok {
		return
	}
	table, err := tc.Engine.Reserve(c.Request.Context(), id, req.party())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table reserved", table)
}

// EditTable -> ubah nama/jumlah kursi, meja ditandai terisi
func (tc *TableController) EditTable(c *gin.Context) {
	id, req, ok := bindParty(c)
	if !ok {
		return
	}
	table, err := tc.Engine.Edit(c.Request.Context(), id, req.party())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// SetTableOccupancy -> set ketiga field, dipakai untuk mengosongkan meja
func (tc *TableController) SetTableOccupancy(c *gin.Context) {
	id, err := reservation.ParseTableID(c.Param("table_id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	var req occupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondEngineError(c, reservation.NewValidationError("body", "must be a JSON object with name, seatCount and occupied"))
		return
	}
	table, err := tc.Engine.SetOccupancy(c.Request.Context(), id, req.party(), req.Occupied)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table occupancy updated", table)
}

func bindParty(c *gin.Context) (int, partyRequest, bool) {
	var req partyRequest
	id, err := reservation.ParseTableID(c.Param("table_id"))
	if err != nil {
		respondEngineError(c, err)
		return 0, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondEngineError(c, reservation.NewValidationError("body", "must be a JSON object with name and seatCount"))
		return 0, req, false
	}
	return id, req, true
}

// respondEngineError never leaks store detail; it was logged by the engine.
func respondEngineError(c *gin.Context, err error) {
	status := reservation.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		utils.RespondError(c, status, errInternal)
		return
	}
	utils.RespondError(c, status, err)
}
