package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/ledger"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; the validator needs a number to apply
	// gte/gt tags to it.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// On failure the response is already written and the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parâmetros inválidos: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeServiceError maps domain errors to status codes. Anything unknown is
// handed to the ErrorHandler middleware, which answers 500 without details.
func writeServiceError(c *gin.Context, err error) {
	var stockErr *apierror.InsufficientStockError
	var providerErr *infra.ProviderError

	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, apierror.StockError{
			Detail:    stockErr.Error(),
			Available: stockErr.Available,
			Requested: stockErr.Requested,
		})
	case errors.Is(err, apierror.ErrProductNotFound),
		errors.Is(err, apierror.ErrInventoryNotFound),
		errors.Is(err, apierror.ErrSaleNotFound),
		errors.Is(err, apierror.ErrGoalNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, apierror.ErrDuplicateInventory),
		errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, apierror.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnknownKind):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, infra.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Produto ocupado, tente novamente"))
	case errors.Is(err, apierror.ErrInvalidCredentialConfig):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Provedor de identidade indisponível"))
	case errors.Is(err, dashboard.ErrAllSourcesFailed):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Não foi possível carregar os dados do painel"))
	case errors.Is(err, infra.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Serviço externo indisponível"))
	case errors.Is(err, service.ErrImagesDisabled):
		c.JSON(http.StatusNotImplemented, apierror.New(err.Error()))
	case errors.As(err, &providerErr):
		c.JSON(http.StatusUnauthorized, apierror.New("Credenciais inválidas"))
	default:
		_ = c.Error(err)
	}
}

// monthYear reads ?month=&year=, defaulting to the current month.
func monthYear(c *gin.Context) (int, int, bool) {
	month, year := model.CurrentMonth(time.Now())
	if v := c.Query("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			c.JSON(http.StatusBadRequest, apierror.New("Mês inválido"))
			return 0, 0, false
		}
		month = m
	}
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			c.JSON(http.StatusBadRequest, apierror.New("Ano inválido"))
			return 0, 0, false
		}
		year = y
	}
	return month, year, true
}

// dateRange parses YYYY-MM-DD bounds as UTC days into a half-open range that
// ends where the day after to begins. Empty bounds default to the current month.
func dateRange(from, to string) (time.Time, time.Time, error) {
	start, end := model.MonthRange(model.CurrentMonth(time.Now()))
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, apierror.Invalid("data inicial inválida")
		}
		start = t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, apierror.Invalid("data final inválida")
		}
		end = t.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, apierror.Invalid("período vazio")
	}
	return start, end, nil
}
