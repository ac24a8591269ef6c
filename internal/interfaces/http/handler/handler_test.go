package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bomapp "github.com/erp/bomengine/internal/application/bom"
	catalogapp "github.com/erp/bomengine/internal/application/catalog"
	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	productionapp "github.com/erp/bomengine/internal/application/production"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/infrastructure/cache"
	"github.com/erp/bomengine/internal/infrastructure/lock"
	"github.com/erp/bomengine/internal/infrastructure/persistence"
	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/erp/bomengine/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	txScope := persistence.NewGormTransactionScope(db)
	log := zap.NewNop()

	products := catalogapp.NewProductService(repos, txScope, log)
	boms := bomapp.NewService(repos, txScope, bomapp.Options{Rounding: bom.RoundingExact}, log)
	batches := inventoryapp.NewBatchService(repos, txScope, inventory.AllocationStrategyFEFO, log)
	counts := inventoryapp.NewCountService(repos, txScope, log)
	orders := productionapp.NewService(repos, txScope, boms.Planner(), boms.Estimator(), batches,
		productionapp.Options{LockTTL: time.Second}, log)
	orders.SetLocker(lock.NewLocalLocker())
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	orders.SetIdempotencyStore(store)

	engine := router.NewEngine(router.EngineConfig{ServiceName: "bomengine-test", Logger: log})
	sqlDB, err := db.DB()
	require.NoError(t, err)
	NewSystemHandler("bomengine", "test", map[string]Pinger{
		"database": PingFunc(sqlDB.PingContext),
	}).RegisterRoutes(engine)

	r := router.NewRouter(engine)
	r.RegisterDomains(
		NewProductHandler(products),
		NewBOMHandler(boms),
		NewProductionHandler(orders),
		NewBatchHandler(batches),
		NewCountHandler(counts),
	)
	r.Setup()

	return &api{t: t, engine: engine}
}

func (a *api) do(method, path string, body any, headers ...string) (int, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

// must performs a request, requires status and decodes data into out
func (a *api) must(status int, method, path string, body, out any, headers ...string) {
	a.t.Helper()
	code, env := a.do(method, path, body, headers...)
	require.Equal(a.t, status, code, "%s %s: %+v", method, path, env.Error)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
}

func (a *api) product(sku, unit string, raw bool, stock, cost string) catalogapp.ProductResponse {
	a.t.Helper()
	req := map[string]any{
		"sku":             sku,
		"name":            "Product " + sku,
		"unit":            unit,
		"is_raw_material": raw,
	}
	if stock != "" {
		req["initial_stock"] = stock
	}
	if cost != "" {
		req["unit_cost"] = cost
	}
	var p catalogapp.ProductResponse
	a.must(http.StatusCreated, http.MethodPost, "/products", req, &p)
	return p
}

type jamSetup struct {
	fruit, sugar, jam catalogapp.ProductResponse
	bom               bomapp.BOMResponse
}

// jam: 10 PCS from 5 KG fruit (cost 2) and 2 KG sugar (cost 1)
func (a *api) jam() jamSetup {
	a.t.Helper()
	s := jamSetup{
		fruit: a.product("FRUIT", "KG", true, "10", "2"),
		sugar: a.product("SUGAR", "KG", true, "10", "1"),
		jam:   a.product("JAM", "PCS", false, "", ""),
	}
	a.must(http.StatusCreated, http.MethodPost, "/boms", map[string]any{
		"code":              "jam",
		"name":              "Strawberry jam",
		"output_product_id": s.jam.ID,
		"output_quantity":   "10",
		"output_unit":       "PCS",
		"items": []map[string]any{
			{"product_id": s.fruit.ID, "quantity": "5", "unit": "KG"},
			{"product_id": s.sugar.ID, "quantity": "2", "unit": "KG"},
		},
	}, &s.bom)
	return s
}

func (a *api) stock(id uuid.UUID) decimal.Decimal {
	a.t.Helper()
	var level catalogapp.StockLevelResponse
	a.must(http.StatusOK, http.MethodGet, "/products/"+id.String()+"/stock", nil, &level)
	return level.CurrentStock
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestProductHandler(t *testing.T) {
	a := newAPI(t)
	flour := a.product("FLOUR", "KG", true, "25", "0.8")

	t.Run("initial stock is on the audit trail", func(t *testing.T) {
		assertDecimal(t, "25", a.stock(flour.ID))

		code, env := a.do(http.MethodGet, "/products/"+flour.ID.String()+"/adjustments", nil)
		require.Equal(t, http.StatusOK, code)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
	})

	t.Run("duplicate sku conflicts", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/products", map[string]any{"sku": "FLOUR", "name": "Again", "unit": "KG"})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, env.Error.Code)
	})

	t.Run("lookup by sku", func(t *testing.T) {
		var p catalogapp.ProductResponse
		a.must(http.StatusOK, http.MethodGet, "/products/sku/FLOUR", nil, &p)
		assert.Equal(t, flour.ID, p.ID)
	})

	t.Run("adjustments require a reason and keep stock non-negative", func(t *testing.T) {
		path := "/products/" + flour.ID.String() + "/stock/adjust"

		code, env := a.do(http.MethodPost, path, map[string]any{"delta": "-1"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeMissingReason, env.Error.Code)

		code, env = a.do(http.MethodPost, path, map[string]any{"delta": "-30", "reason": "spillage"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeInsufficientStock, env.Error.Code)

		var adj catalogapp.StockAdjustmentResponse
		a.must(http.StatusOK, http.MethodPost, path, map[string]any{"delta": "-5", "reason": "spillage", "reference": "INC-7"}, &adj)
		assertDecimal(t, "20", adj.BalanceAfter)

		var byRef []catalogapp.StockAdjustmentResponse
		a.must(http.StatusOK, http.MethodGet, "/products/adjustments?reference=INC-7", nil, &byRef)
		assert.Len(t, byRef, 1)
	})

	t.Run("malformed and unknown ids", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)

		code, env = a.do(http.MethodGet, "/products/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
		assert.NotEmpty(t, env.Error.RequestID)
	})

	t.Run("validation errors name the field", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/products", map[string]any{"name": "No SKU", "unit": "KG"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		require.NotEmpty(t, env.Error.Fields)
		assert.Equal(t, "sku", env.Error.Fields[0].Field)
	})
}

func TestBOMHandler_Planning(t *testing.T) {
	a := newAPI(t)
	s := a.jam()
	base := "/boms/" + s.bom.ID.String()

	t.Run("requirements", func(t *testing.T) {
		var req bomapp.RequirementsResponse
		a.must(http.StatusOK, http.MethodGet, base+"/requirements?quantity=4", nil, &req)
		require.Len(t, req.Lines, 2)
		assertDecimal(t, "2", req.Lines[0].Quantity)
		assertDecimal(t, "0.8", req.Lines[1].Quantity)
	})

	t.Run("availability reports shortages", func(t *testing.T) {
		var avail bomapp.AvailabilityResponse
		a.must(http.StatusOK, http.MethodGet, base+"/availability?quantity=100", nil, &avail)
		assert.False(t, avail.IsAvailable)
		require.Len(t, avail.Shortages, 2)
		assertDecimal(t, "40", avail.Shortages[0].Shortage)
	})

	t.Run("cost", func(t *testing.T) {
		var cost bomapp.CostEstimateResponse
		a.must(http.StatusOK, http.MethodGet, base+"/cost?quantity=10", nil, &cost)
		assertDecimal(t, "1.2", cost.UnitCost)
	})

	t.Run("quantity is required and must parse", func(t *testing.T) {
		code, _ := a.do(http.MethodGet, base+"/requirements", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = a.do(http.MethodGet, base+"/requirements?quantity=lots", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		code, env := a.do(http.MethodGet, base+"/requirements?quantity=0", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeInvalidQuantity, env.Error.Code)
	})

	t.Run("update of a referenced bom creates a revision", func(t *testing.T) {
		a.must(http.StatusCreated, http.MethodPost, "/production-orders", map[string]any{
			"bom_id": s.bom.ID, "target_quantity": "10",
		}, nil)

		var updated bomapp.UpdateBOMResponse
		a.must(http.StatusOK, http.MethodPut, base, map[string]any{
			"name":            "Strawberry jam, less sugar",
			"output_quantity": "10",
			"output_unit":     "PCS",
			"items": []map[string]any{
				{"product_id": s.fruit.ID, "quantity": "5", "unit": "KG"},
				{"product_id": s.sugar.ID, "quantity": "1", "unit": "KG"},
			},
		}, &updated)
		assert.True(t, updated.NewRevision)
		assert.Equal(t, 2, updated.Revision)

		var revisions []bomapp.BOMResponse
		a.must(http.StatusOK, http.MethodGet, "/boms/code/jam/revisions", nil, &revisions)
		assert.Len(t, revisions, 2)

		var active bomapp.BOMResponse
		a.must(http.StatusOK, http.MethodGet, "/boms/code/jam", nil, &active)
		assert.Equal(t, updated.ID, active.ID)
	})
}

func TestProductionHandler_Flow(t *testing.T) {
	a := newAPI(t)
	s := a.jam()
	employee := uuid.New()

	var order productionapp.OrderResponse
	a.must(http.StatusCreated, http.MethodPost, "/production-orders", map[string]any{
		"bom_id":          s.bom.ID,
		"target_quantity": "10",
		"priority":        "HIGH",
	}, &order)
	assert.Equal(t, "PLANNED", order.Status)
	base := "/production-orders/" + order.ID.String()

	code, env := a.do(http.MethodPost, base+"/records", map[string]any{"employee_id": employee, "quantity": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "recording needs IN_PROGRESS")
	assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)

	a.must(http.StatusOK, http.MethodPost, base+"/transition", map[string]any{"status": "IN_PROGRESS"}, &order)
	assert.Equal(t, "IN_PROGRESS", order.Status)

	t.Run("record is idempotent per key", func(t *testing.T) {
		body := map[string]any{"employee_id": employee, "quantity": "4"}

		var first productionapp.RecordProductionResponse
		a.must(http.StatusCreated, http.MethodPost, base+"/records", body, &first, IdempotencyKeyHeader, "scan-1")
		assert.False(t, first.Replayed)
		require.NotNil(t, first.Record)
		assertDecimal(t, "4", first.Order.CompletedQuantity)

		var again productionapp.RecordProductionResponse
		a.must(http.StatusOK, http.MethodPost, base+"/records", body, &again, IdempotencyKeyHeader, "scan-1")
		assert.True(t, again.Replayed)
		assertDecimal(t, "4", again.Order.CompletedQuantity)

		assertDecimal(t, "8", a.stock(s.fruit.ID))
		assertDecimal(t, "9.2", a.stock(s.sugar.ID))
		assertDecimal(t, "4", a.stock(s.jam.ID))
	})

	t.Run("over production is rejected with details", func(t *testing.T) {
		code, env := a.do(http.MethodPost, base+"/records", map[string]any{"employee_id": employee, "quantity": "7"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeOverProduction, env.Error.Code)
		assertDecimal(t, "4", a.stock(s.jam.ID))
	})

	t.Run("completing early needs force", func(t *testing.T) {
		code, env := a.do(http.MethodPost, base+"/transition", map[string]any{"status": "COMPLETED"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeInvalidStateTransition, env.Error.Code)

		a.must(http.StatusOK, http.MethodPost, base+"/transition", map[string]any{"status": "COMPLETED", "force": true}, &order)
		assert.Equal(t, "COMPLETED", order.Status)
		assert.True(t, order.ForceCompleted)
	})

	t.Run("records and quality", func(t *testing.T) {
		var records []productionapp.RecordResponse
		a.must(http.StatusOK, http.MethodGet, base+"/records", nil, &records)
		require.Len(t, records, 1)

		path := "/production-orders/records/" + records[0].ID.String() + "/quality"
		var rec productionapp.RecordResponse
		a.must(http.StatusOK, http.MethodPatch, path, map[string]any{"checked": true, "notes": "set well"}, &rec)
		assert.True(t, rec.QualityChecked)

		code, _ := a.do(http.MethodPatch, path, map[string]any{"checked": false})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("list filters by status", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/production-orders?status=COMPLETED", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, int64(1), env.Meta.Total)
		assert.Equal(t, 1, env.Meta.Page)

		code, env = a.do(http.MethodGet, "/production-orders?status=PLANNED&bom_id="+s.bom.ID.String(), nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, int64(0), env.Meta.Total)

		code, _ = a.do(http.MethodGet, "/production-orders?status=DONE", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestBatchHandler(t *testing.T) {
	a := newAPI(t)
	sugar := a.product("SUGAR", "KG", true, "", "1")

	receive := func(number, qty string, expiry time.Time) inventoryapp.BatchResponse {
		var b inventoryapp.BatchResponse
		a.must(http.StatusCreated, http.MethodPost, "/batches", map[string]any{
			"product_id":   sugar.ID,
			"batch_number": number,
			"quantity":     qty,
			"unit_cost":    "1",
			"expiry_date":  expiry,
		}, &b)
		return b
	}
	late := receive("S-LATE", "5", time.Now().AddDate(0, 3, 0))
	early := receive("S-EARLY", "3", time.Now().AddDate(0, 1, 0))
	assertDecimal(t, "8", a.stock(sugar.ID))

	t.Run("preview follows expiry", func(t *testing.T) {
		var plan inventory.AllocationPlan
		a.must(http.StatusOK, http.MethodPost, "/batches/allocation-preview", map[string]any{
			"product_id": sugar.ID, "quantity": "4",
		}, &plan)
		require.Len(t, plan.Allocations, 2)
		assert.Equal(t, early.ID, plan.Allocations[0].BatchID)
		assertDecimal(t, "8", a.stock(sugar.ID))
	})

	t.Run("consume draws and books movements", func(t *testing.T) {
		var result inventoryapp.ConsumptionResponse
		a.must(http.StatusOK, http.MethodPost, "/batches/consume", map[string]any{
			"product_id": sugar.ID, "quantity": "4", "reference": "SAMPLE-1",
		}, &result)
		assert.Len(t, result.Movements, 2)
		assertDecimal(t, "4", a.stock(sugar.ID))

		var moves []inventoryapp.MovementResponse
		a.must(http.StatusOK, http.MethodGet, "/batches/movements?reference=SAMPLE-1", nil, &moves)
		assert.Len(t, moves, 2)
	})

	t.Run("shortage changes nothing", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/batches/consume", map[string]any{"product_id": sugar.ID, "quantity": "50"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeInsufficientBatchStock, env.Error.Code)
		assertDecimal(t, "4", a.stock(sugar.ID))
	})

	t.Run("ledger balances", func(t *testing.T) {
		var check inventory.LedgerCheck
		a.must(http.StatusOK, http.MethodGet, "/batches/"+late.ID.String()+"/ledger", nil, &check)
		assert.True(t, check.Balanced)
		assert.Equal(t, 1, check.Movements)
		assertDecimal(t, "1", check.DrawnQuantity)
	})

	t.Run("list by product", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/batches?product_id="+sugar.ID.String(), nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, int64(2), env.Meta.Total)

		var active []inventoryapp.BatchResponse
		a.must(http.StatusOK, http.MethodGet, "/batches?active=true&product_id="+sugar.ID.String(), nil, &active)
		require.Len(t, active, 1)
		assert.Equal(t, late.ID, active[0].ID)

		code, _ = a.do(http.MethodGet, "/batches?active=maybe&product_id="+sugar.ID.String(), nil)
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = a.do(http.MethodGet, "/batches", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestCountHandler_Reconcile(t *testing.T) {
	a := newAPI(t)
	flour := a.product("FLOUR", "KG", true, "20", "")
	counter := uuid.New()

	var count inventoryapp.CountResponse
	a.must(http.StatusCreated, http.MethodPost, "/inventory-counts", map[string]any{
		"reference":   "IC-2026-10",
		"product_ids": []uuid.UUID{flour.ID},
		"created_by":  counter,
	}, &count)
	base := "/inventory-counts/" + count.ID.String()

	code, env := a.do(http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, dto.ErrCodeInvalidStateTransition, env.Error.Code)

	a.must(http.StatusOK, http.MethodPost, base+"/start", nil, &count)
	a.must(http.StatusOK, http.MethodPost, base+"/actuals", map[string]any{"product_id": flour.ID, "actual": "18.5"}, &count)
	require.Len(t, count.Items, 1)
	assertDecimal(t, "-1.5", count.Items[0].Variance)
	a.must(http.StatusOK, http.MethodPost, base+"/complete", nil, &count)

	code, env = a.do(http.MethodPost, base+"/reconcile", map[string]any{
		"reconciled_by": counter,
		"decisions":     []map[string]any{{"product_id": flour.ID, "approve": true}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, dto.ErrCodeMissingReason, env.Error.Code)

	a.must(http.StatusOK, http.MethodPost, base+"/reconcile", map[string]any{
		"reconciled_by": counter,
		"decisions":     []map[string]any{{"product_id": flour.ID, "approve": true, "reason_code": "SPILLAGE"}},
	}, &count)
	assert.Equal(t, "RECONCILED", count.Status)
	assertDecimal(t, "18.5", a.stock(flour.ID))

	code, env = a.do(http.MethodGet, "/inventory-counts?status=RECONCILED", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Meta.Total)
}

func TestSystemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy", func(t *testing.T) {
		engine := gin.New()
		NewSystemHandler("bomengine", "1.0.0", map[string]Pinger{
			"database": PingFunc(func(context.Context) error { return nil }),
		}).RegisterRoutes(engine)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		engine := gin.New()
		NewSystemHandler("bomengine", "1.0.0", map[string]Pinger{
			"database": PingFunc(func(context.Context) error { return nil }),
			"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		}).RegisterRoutes(engine)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})

	t.Run("info and ping", func(t *testing.T) {
		engine := gin.New()
		NewSystemHandler("bomengine", "1.0.0", nil).RegisterRoutes(engine)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/info", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"version":"1.0.0"`)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/ping", nil))
		assert.Contains(t, w.Body.String(), "pong")
	})
}
