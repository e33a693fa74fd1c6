package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/finverse/ledger-backend/internal/adapter/wire"
	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
)

// decodeObject reads a JSON object body, keeping numbers as json.Number so
// decimal amounts are not rounded through float64. An empty body is an empty object.
func decodeObject(body []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, domain.NewValidationError("request body must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("request body must contain a single JSON object")
	}
	return fields, nil
}

// ApplyOperationHandler runs one ledger operation for an owner.
// The body carries the operation parameters; Idempotency-Key is optional.
func ApplyOperationHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := OperationPathSchema{
			Owner:          c.Params("owner"),
			Operation:      c.Params("op"),
			IdempotencyKey: strings.TrimSpace(c.Get("Idempotency-Key")),
		}
		if err := ValidateInput(&path); err != nil {
			return invalidInput(c, err)
		}

		fields, err := decodeObject(c.Body())
		if err != nil {
			return d.respondError(c, err)
		}
		ownerID, err := wire.ParseID(path.Owner, "owner")
		if err != nil {
			return d.respondError(c, err)
		}
		op, err := wire.ParseOperation(path.Operation)
		if err != nil {
			return d.respondError(c, err)
		}
		params, err := wire.ParseParams(op, fields)
		if err != nil {
			return d.respondError(c, err)
		}

		res, err := d.Engine.ApplyWithRetry(c, ledger.Request{
			OwnerID:        ownerID,
			IdempotencyKey: path.IdempotencyKey,
			Params:         params,
		}, d.Retry)
		if err != nil {
			return d.respondError(c, err)
		}

		statusCode := fiber.StatusCreated
		if res.Replayed {
			statusCode = fiber.StatusOK
		}
		return c.Status(statusCode).JSON(wire.ResultToMap(res))
	}
}

// GetEntityHandler returns the committed state of an entity
func GetEntityHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := EntityPathSchema{Kind: c.Params("kind"), ID: c.Params("id")}
		if err := ValidateInput(&path); err != nil {
			return invalidInput(c, err)
		}
		ref, err := wire.ParseRef(path.Kind, path.ID)
		if err != nil {
			return d.respondError(c, err)
		}

		entity, err := d.Query.GetCurrentState(c, ref)
		if err != nil {
			return d.respondError(c, err)
		}
		return c.JSON(wire.EntityToMap(entity))
	}
}

// ListHistoryHandler returns a page of an entity's history, newest first
func ListHistoryHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := EntityPathSchema{Kind: c.Params("kind"), ID: c.Params("id")}
		if err := ValidateInput(&path); err != nil {
			return invalidInput(c, err)
		}
		ref, err := wire.ParseRef(path.Kind, path.ID)
		if err != nil {
			return d.respondError(c, err)
		}

		pagination := GetPagination[any](c)
		history, err := d.Query.ListHistory(c, ref, pagination.Window())
		if err != nil {
			return d.respondError(c, err)
		}

		pagination.Total = history.Total
		pagination.Items = wire.EventsToList(history.Events)
		return c.JSON(pagination)
	}
}

// ProvisionHandler makes sure an owner has a wallet and a portfolio
func ProvisionHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := OwnerPathSchema{Owner: c.Params("owner")}
		if err := ValidateInput(&path); err != nil {
			return invalidInput(c, err)
		}

		var body ProvisionSchema
		if len(bytes.TrimSpace(c.Body())) > 0 {
			if err := c.Bind().Body(&body); err != nil {
				return fiber.ErrBadRequest
			}
		}
		if err := ValidateInput(&body); err != nil {
			return invalidInput(c, err)
		}

		ownerID, err := wire.ParseID(path.Owner, "owner")
		if err != nil {
			return d.respondError(c, err)
		}
		account, err := d.Provisioner.Provision(c, ownerID, body.Currency)
		if err != nil {
			return d.respondError(c, err)
		}

		statusCode := fiber.StatusOK
		if account.Created {
			statusCode = fiber.StatusCreated
		}
		return c.Status(statusCode).JSON(wire.AccountToMap(account))
	}
}

// NetWorthHandler aggregates an owner's balances
func NetWorthHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := OwnerPathSchema{Owner: c.Params("owner")}
		if err := ValidateInput(&path); err != nil {
			return invalidInput(c, err)
		}
		ownerID, err := wire.ParseID(path.Owner, "owner")
		if err != nil {
			return d.respondError(c, err)
		}

		netWorth, err := d.Query.GetNetWorth(c, ownerID)
		if err != nil {
			return d.respondError(c, err)
		}
		return c.JSON(wire.NetWorthToMap(netWorth))
	}
}

// CommentaryHandler lists the latest advisory commentary of an owner
func CommentaryHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil {
			return d.respondError(c, domain.NewValidationError("limit must be a number"))
		}
		path := OwnerPathSchema{Owner: c.Params("owner")}
		if err := ValidateInput(&path); err != nil {
			return invalidInput(c, err)
		}
		query := CommentaryQuerySchema{Limit: limit}
		if err := ValidateInput(&query); err != nil {
			return invalidInput(c, err)
		}
		ownerID, err := wire.ParseID(path.Owner, "owner")
		if err != nil {
			return d.respondError(c, err)
		}

		items, err := d.Query.ListCommentary(c, ownerID, query.Limit)
		if err != nil {
			return d.respondError(c, err)
		}
		return c.JSON(fiber.Map{"items": wire.CommentaryToList(items)})
	}
}

// RepaymentScheduleHandler returns the installment plan of a loan
func RepaymentScheduleHandler(d Deps) fiber.Handler {
	return func(c fiber.Ctx) error {
		loanID, err := wire.ParseID(c.Params("id"), "loan id")
		if err != nil {
			return d.respondError(c, err)
		}

		installments, err := d.Query.GetRepaymentSchedule(c, loanID)
		if err != nil {
			return d.respondError(c, err)
		}
		return c.JSON(fiber.Map{"installments": wire.ScheduleToList(installments)})
	}
}

func invalidInput(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponseSchema{
		Error: err.Error(),
		Kind:  string(domain.KindValidation),
	})
}

// respondError maps ledger errors to HTTP statuses.
// Anything that is not a ledger error is logged and answered with a generic 500.
func (d Deps) respondError(c fiber.Ctx, err error) error {
	var le *domain.LedgerError
	if !errors.As(err, &le) {
		d.Logger.Error("ledger request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponseSchema{Error: "internal error"})
	}

	statusCode := fiber.StatusInternalServerError
	switch le.Kind {
	case domain.KindValidation, domain.KindInvalidAmount:
		statusCode = fiber.StatusBadRequest
	case domain.KindEntityNotFound:
		statusCode = fiber.StatusNotFound
	case domain.KindInsufficientFunds, domain.KindInsufficientHoldings, domain.KindFrozenEntity,
		domain.KindLoanNotActive, domain.KindTaxPeriodClosed:
		statusCode = fiber.StatusUnprocessableEntity
	case domain.KindConcurrentModification:
		statusCode = fiber.StatusConflict
	}

	return c.Status(statusCode).JSON(ErrorResponseSchema{Error: err.Error(), Kind: string(le.Kind)})
}
