package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"inventory-service/internal/ledger"
)

var stockLedger *ledger.Ledger

// Init wires the handlers to the stock ledger. Must be called once
// during startup, after the database is initialized.
func Init(l *ledger.Ledger) {
	stockLedger = l
}

// ledgerError maps a typed ledger failure to an HTTP error response.
// Every ledger error is a caller-visible precondition failure, so
// anything unrecognized is a real server error.
func ledgerError(c echo.Context, err error) error {
	var insufficient *ledger.InsufficientStockError
	if errors.As(err, &insufficient) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": insufficient.Error()})
	}

	switch {
	case errors.Is(err, ledger.ErrProductNotFound),
		errors.Is(err, ledger.ErrOrderNotFound),
		errors.Is(err, ledger.ErrPurchaseOrderNotFound),
		errors.Is(err, ledger.ErrSupplierNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrEmptyOrder),
		errors.Is(err, ledger.ErrNegativeStock),
		errors.Is(err, ledger.ErrAlreadyReceived),
		errors.Is(err, ledger.ErrIllegalStateTransition):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}
