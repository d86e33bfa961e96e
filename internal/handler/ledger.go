package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/ledger"
)

type LedgerHandler struct{ store *ledger.Store }

func NewLedgerHandler(store *ledger.Store) *LedgerHandler {
	return &LedgerHandler{store: store}
}

func (h *LedgerHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req dto.LedgerTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	tx, err := h.store.Apply(ledger.Kind(req.Kind), req.Amount, req.Description, req.Counterpart)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "account": h.store.Snapshot()})
}
