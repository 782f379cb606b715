package actions

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/csvimport"
	"smartexpense/internal/insights"
	"smartexpense/internal/log"
	"smartexpense/internal/services"
)

type (
	ExpenseService interface {
		Create(ctx context.Context, ownerID string, in services.ExpenseInput) (core.Expense, error)
		Update(ctx context.Context, ownerID, id string, in services.ExpenseInput) (core.Expense, error)
		Delete(ctx context.Context, ownerID, id string) error
		List(ctx context.Context, ownerID string, f core.ExpenseFilter) (core.ExpensePage, error)
		Get(ctx context.Context, ownerID, id string) (core.ExpenseWithCategory, error)
		Recent(ctx context.Context, ownerID string, limit int) ([]core.ExpenseWithCategory, error)
		BaseCurrency(ctx context.Context, ownerID string) (string, error)
	}

	ProfileService interface {
		Get(ctx context.Context, ownerID string) (core.Profile, error)
		UpdateDisplayName(ctx context.Context, ownerID, name string) (core.Profile, error)
	}

	ProductTracker interface {
		Track(ctx context.Context, ownerID string, in services.ProductEventInput) (core.ProductEvent, error)
	}

	CategoryService interface {
		List(ctx context.Context, ownerID string) ([]core.Category, error)
		Create(ctx context.Context, ownerID string, in services.CategoryInput) (core.Category, error)
		Update(ctx context.Context, ownerID, id string, in services.CategoryInput) (core.Category, error)
		Delete(ctx context.Context, ownerID, id string) error
	}

	CurrencyChanger interface {
		ChangeBaseCurrency(ctx context.Context, ownerID, newCurrency string) (services.MigrationResult, error)
	}

	BatchImporter interface {
		ImportBatch(ctx context.Context, ownerID, baseCurrency string, rows []csvimport.ValidatedRow) csvimport.Result
	}

	InsightsProvider interface {
		Snapshot(ctx context.Context, ownerID string, month, year int, baseCurrency string) (insights.Snapshot, error)
		Summary(ctx context.Context, ownerID string, month, year int, baseCurrency string) (core.MonthlySummary, error)
	}
)

// Deps are the collaborators an Actions instance dispatches to.
type Deps struct {
	Expenses   ExpenseService
	Categories CategoryService
	Currency   CurrencyChanger
	Importer   BatchImporter
	RowChecker *csvimport.Validator
	Analytics  InsightsProvider
	Profiles   ProfileService
	Tracker    ProductTracker
	Events     *services.Events

	// OnChange is told about owners whose derived views are stale.
	OnChange services.ChangeHook
	Logger   *log.Logger
}

// Actions validates input and dispatches to the services.
type Actions struct {
	Deps
	validate *validator.Validate
}

func New(d Deps) *Actions {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	return &Actions{Deps: d, validate: newValidator()}
}

func (a *Actions) changed(ownerID string) {
	if a.OnChange != nil {
		a.OnChange(ownerID)
	}
}

func (a *Actions) logFailure(ctx context.Context, op, ownerID string, err error) {
	kind := core.KindOf(err)
	if kind == core.KindInternal || kind == core.KindUpstream {
		a.Logger.ErrorContext(ctx, "Action failed",
			log.FieldOperation, op,
			log.FieldOwnerID, ownerID,
			log.FieldErrorKind, kind.String(),
			log.FieldError, err)
	}
}

// ExpenseForm is the input of CreateExpense and UpdateExpense.
type ExpenseForm struct {
	CategoryID  string `json:"category_id" validate:"required,uuid"`
	Description string `json:"description" validate:"max=200"`
	Amount      Amount `json:"amount" validate:"required,amount,amount_positive,amount_max"`
	Currency    string `json:"currency" validate:"required,len=3,currency"`
	ExpenseDate string `json:"expense_date" validate:"required,isodate"`
}

func (f *ExpenseForm) normalize() {
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	if f.Currency == "" {
		f.Currency = core.DefaultBaseCurrency
	}
	f.CategoryID = strings.TrimSpace(f.CategoryID)
	f.Description = strings.TrimSpace(f.Description)
}

func (f ExpenseForm) input() services.ExpenseInput {
	amount, _ := core.ParseAmount(string(f.Amount))
	date, _ := core.ParseDate(f.ExpenseDate)
	return services.ExpenseInput{
		CategoryID:  f.CategoryID,
		Description: f.Description,
		Amount:      amount,
		Currency:    f.Currency,
		ExpenseDate: date,
	}
}

type idForm struct {
	ID string `json:"id" validate:"required,uuid"`
}

func (a *Actions) checkID(id string) FieldErrors {
	return a.check(idForm{ID: strings.TrimSpace(id)})
}

func (a *Actions) CreateExpense(ctx context.Context, ownerID string, form ExpenseForm) Result[core.Expense] {
	form.normalize()
	if fields := a.check(form); fields != nil {
		return invalid[core.Expense](fields)
	}
	e, err := a.Expenses.Create(ctx, ownerID, form.input())
	if err != nil {
		a.logFailure(ctx, "create_expense", ownerID, err)
		return fail[core.Expense](err, "Error al crear el gasto")
	}
	return ok(e)
}

func (a *Actions) UpdateExpense(ctx context.Context, ownerID, id string, form ExpenseForm) Result[core.Expense] {
	form.normalize()
	fields := a.check(form)
	if idErrs := a.checkID(id); idErrs != nil {
		if fields == nil {
			fields = FieldErrors{}
		}
		fields["id"] = []string{"ID de gasto inválido"}
	}
	if fields != nil {
		return invalid[core.Expense](fields)
	}
	e, err := a.Expenses.Update(ctx, ownerID, id, form.input())
	if err != nil {
		a.logFailure(ctx, "update_expense", ownerID, err)
		return fail[core.Expense](err, "Error al actualizar el gasto")
	}
	return ok(e)
}

func (a *Actions) DeleteExpense(ctx context.Context, ownerID, id string) Result[struct{}] {
	if a.checkID(id) != nil {
		return fail[struct{}](core.Validation("delete expense", "ID de gasto inválido"), "")
	}
	if err := a.Expenses.Delete(ctx, ownerID, id); err != nil {
		a.logFailure(ctx, "delete_expense", ownerID, err)
		return fail[struct{}](err, "Error al eliminar el gasto")
	}
	return ok(struct{}{})
}

func (a *Actions) GetExpense(ctx context.Context, ownerID, id string) Result[core.ExpenseWithCategory] {
	if a.checkID(id) != nil {
		return fail[core.ExpenseWithCategory](core.Validation("get expense", "ID de gasto inválido"), "")
	}
	e, err := a.Expenses.Get(ctx, ownerID, id)
	if err != nil {
		a.logFailure(ctx, "get_expense", ownerID, err)
		return fail[core.ExpenseWithCategory](err, "Error al cargar el gasto")
	}
	return ok(e)
}

// RecentExpenses lists the owner's latest expenses. A zero limit uses the
// service default.
func (a *Actions) RecentExpenses(ctx context.Context, ownerID string, limit int) Result[[]core.ExpenseWithCategory] {
	items, err := a.Expenses.Recent(ctx, ownerID, limit)
	if err != nil {
		a.logFailure(ctx, "recent_expenses", ownerID, err)
		return fail[[]core.ExpenseWithCategory](err, "Error al cargar los gastos recientes")
	}
	if items == nil {
		items = []core.ExpenseWithCategory{}
	}
	return ok(items)
}

// ListQuery selects one month of expenses, optionally for one category.
type ListQuery struct {
	Month      int
	Year       int
	CategoryID string
	Page       int
}

func (a *Actions) ListExpenses(ctx context.Context, ownerID string, q ListQuery) Result[core.ExpensePage] {
	f := core.ExpenseFilter{Page: q.Page, PageSize: core.DefaultPageSize, CategoryID: strings.TrimSpace(q.CategoryID)}
	if q.Month != 0 || q.Year != 0 {
		if q.Month < 1 || q.Month > 12 || q.Year < 1900 {
			return invalid[core.ExpensePage](FieldErrors{"month": {"Mes o año inválido"}})
		}
		f = services.MonthFilter(q.Year, q.Month)
		f.Page, f.PageSize, f.CategoryID = q.Page, core.DefaultPageSize, strings.TrimSpace(q.CategoryID)
	}
	page, err := a.Expenses.List(ctx, ownerID, f)
	if err != nil {
		a.logFailure(ctx, "list_expenses", ownerID, err)
		return fail[core.ExpensePage](err, "Error al cargar los gastos")
	}
	return ok(page)
}

// CategoryForm is the input of CreateCategory and UpdateCategory.
type CategoryForm struct {
	Name  string `json:"name" validate:"required,max=50"`
	Icon  string `json:"icon" validate:"required,max=10"`
	Color string `json:"color" validate:"required,rgbhex"`
}

func (f *CategoryForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Icon = strings.TrimSpace(f.Icon)
	f.Color = strings.TrimSpace(f.Color)
}

func (f CategoryForm) input() services.CategoryInput {
	return services.CategoryInput{Name: f.Name, Icon: f.Icon, Color: f.Color}
}

func (a *Actions) ListCategories(ctx context.Context, ownerID string) Result[[]core.Category] {
	cats, err := a.Categories.List(ctx, ownerID)
	if err != nil {
		a.logFailure(ctx, "list_categories", ownerID, err)
		return fail[[]core.Category](err, "Error al cargar las categorías")
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return ok(cats)
}

func (a *Actions) CreateCategory(ctx context.Context, ownerID string, form CategoryForm) Result[core.Category] {
	form.normalize()
	if fields := a.check(form); fields != nil {
		return invalid[core.Category](fields)
	}
	c, err := a.Categories.Create(ctx, ownerID, form.input())
	if err != nil {
		a.logFailure(ctx, "create_category", ownerID, err)
		return fail[core.Category](err, "Error al crear la categoría")
	}
	return ok(c)
}

func (a *Actions) UpdateCategory(ctx context.Context, ownerID, id string, form CategoryForm) Result[core.Category] {
	form.normalize()
	fields := a.check(form)
	if a.checkID(id) != nil {
		if fields == nil {
			fields = FieldErrors{}
		}
		fields["id"] = []string{"ID de categoría inválido"}
	}
	if fields != nil {
		return invalid[core.Category](fields)
	}
	c, err := a.Categories.Update(ctx, ownerID, id, form.input())
	if err != nil {
		a.logFailure(ctx, "update_category", ownerID, err)
		return fail[core.Category](err, "Error al actualizar la categoría")
	}
	a.changed(ownerID)
	return ok(c)
}

func (a *Actions) DeleteCategory(ctx context.Context, ownerID, id string) Result[struct{}] {
	if a.checkID(id) != nil {
		return fail[struct{}](core.Validation("delete category", "ID de categoría inválido"), "")
	}
	if err := a.Categories.Delete(ctx, ownerID, id); err != nil {
		a.logFailure(ctx, "delete_category", ownerID, err)
		return fail[struct{}](err, "Error al eliminar la categoría")
	}
	return ok(struct{}{})
}

// ImportCSV parses and validates the upload, imports the valid rows and
// returns the full report. Discarded rows are counted, never inserted.
func (a *Actions) ImportCSV(ctx context.Context, ownerID string, r io.Reader) Result[csvimport.Result] {
	base, err := a.Expenses.BaseCurrency(ctx, ownerID)
	if err != nil {
		a.logFailure(ctx, "import_csv", ownerID, err)
		return fail[csvimport.Result](err, "Error al importar el archivo")
	}

	parsed, err := csvimport.Parse(r, base, a.RowChecker)
	if err != nil {
		if core.IsKind(err, core.KindValidation) {
			return invalid[csvimport.Result](FieldErrors{"file": {core.Message(err, "Archivo inválido")}})
		}
		a.logFailure(ctx, "import_csv", ownerID, err)
		return fail[csvimport.Result](err, "Error al importar el archivo")
	}

	res := a.Importer.ImportBatch(ctx, ownerID, base, parsed.ValidRows)
	res.Discarded = len(parsed.DiscardedRows)

	a.Logger.InfoContext(ctx, "CSV import finished",
		log.FieldOwnerID, ownerID,
		"total_rows", parsed.TotalRows,
		"inserted", res.Inserted,
		"defaulted", res.Defaulted,
		"errors", res.Errors,
		"discarded", res.Discarded)

	if res.Inserted > 0 {
		a.changed(ownerID)
	}
	a.Events.ExpensesImported(ctx, ownerID, amqp.ExpensesImportedPayload{
		Inserted:  res.Inserted,
		Defaulted: res.Defaulted,
		Errors:    res.Errors,
		Discarded: res.Discarded,
	})
	return ok(res)
}

// BaseCurrencyForm is the input of ChangeBaseCurrency.
type BaseCurrencyForm struct {
	BaseCurrency string `json:"base_currency" validate:"required,len=3,currency"`
}

func (a *Actions) ChangeBaseCurrency(ctx context.Context, ownerID string, form BaseCurrencyForm) Result[services.MigrationResult] {
	form.BaseCurrency = strings.ToUpper(strings.TrimSpace(form.BaseCurrency))
	if fields := a.check(form); fields != nil {
		return invalid[services.MigrationResult](fields)
	}
	res, err := a.Currency.ChangeBaseCurrency(ctx, ownerID, form.BaseCurrency)
	if err != nil {
		a.logFailure(ctx, "change_base_currency", ownerID, err)
		return fail[services.MigrationResult](err,
			"No se pudieron convertir todos los gastos a la nueva moneda. Algunos gastos pueden reflejar ya la nueva moneda.")
	}
	return ok(res)
}

// ProfileForm is the input of UpdateProfile.
type ProfileForm struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=50"`
}

func (a *Actions) GetProfile(ctx context.Context, ownerID string) Result[core.Profile] {
	p, err := a.Profiles.Get(ctx, ownerID)
	if err != nil {
		a.logFailure(ctx, "get_profile", ownerID, err)
		return fail[core.Profile](err, "Error al cargar el perfil")
	}
	return ok(p)
}

func (a *Actions) UpdateProfile(ctx context.Context, ownerID string, form ProfileForm) Result[core.Profile] {
	form.DisplayName = strings.TrimSpace(form.DisplayName)
	if fields := a.check(form); fields != nil {
		return invalid[core.Profile](fields)
	}
	p, err := a.Profiles.UpdateDisplayName(ctx, ownerID, form.DisplayName)
	if err != nil {
		a.logFailure(ctx, "update_profile", ownerID, err)
		return fail[core.Profile](err, "Error al actualizar perfil")
	}
	return ok(p)
}

// EventForm is a client usage event.
type EventForm struct {
	Name     string          `json:"name" validate:"required,event_name"`
	Context  string          `json:"context" validate:"required,event_context"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// TrackResult reports whether a valid event reached storage.
type TrackResult struct {
	Stored bool `json:"stored"`
}

// TrackEvent stores an allow-listed usage event. Storage failures are
// reported as Stored=false, never as a failed request.
func (a *Actions) TrackEvent(ctx context.Context, ownerID string, form EventForm) Result[TrackResult] {
	if fields := a.check(form); fields != nil {
		return invalid[TrackResult](fields)
	}
	_, err := a.Tracker.Track(ctx, ownerID, services.ProductEventInput{
		Name:     form.Name,
		Context:  form.Context,
		Metadata: form.Metadata,
	})
	switch {
	case err == nil:
		return ok(TrackResult{Stored: true})
	case core.IsKind(err, core.KindValidation):
		return invalid[TrackResult](FieldErrors{"metadata": {core.Message(err, "Invalid payload")}})
	default:
		return ok(TrackResult{Stored: false})
	}
}

// MonthQuery selects a calendar month. Zero values mean the current month.
type MonthQuery struct {
	Month int
	Year  int
}

func (a *Actions) monthAndBase(ctx context.Context, ownerID string, q MonthQuery, today core.Date) (MonthQuery, string, error) {
	if q.Month == 0 {
		q.Month = int(today.Month())
	}
	if q.Year == 0 {
		q.Year = today.Year()
	}
	base, err := a.Expenses.BaseCurrency(ctx, ownerID)
	return q, base, err
}

func (a *Actions) Insights(ctx context.Context, ownerID string, q MonthQuery, today core.Date) Result[insights.Snapshot] {
	q, base, err := a.monthAndBase(ctx, ownerID, q, today)
	if err == nil {
		var s insights.Snapshot
		if s, err = a.Analytics.Snapshot(ctx, ownerID, q.Month, q.Year, base); err == nil {
			return ok(s)
		}
	}
	a.logFailure(ctx, "insights", ownerID, err)
	return fail[insights.Snapshot](err, "Error al calcular los insights")
}

// SimulationQuery is a what-if request on top of a month snapshot.
type SimulationQuery struct {
	MonthQuery
	Category     string
	ReductionPct float64
	MonthlyGoal  string
}

func (a *Actions) Simulate(ctx context.Context, ownerID string, q SimulationQuery, today core.Date) Result[insights.Simulation] {
	goal := decimal.Zero
	if strings.TrimSpace(q.MonthlyGoal) != "" {
		g, err := core.ParseAmount(q.MonthlyGoal)
		if err != nil || g.IsNegative() {
			return invalid[insights.Simulation](FieldErrors{"goal": {"La meta debe ser un número mayor o igual a 0"}})
		}
		goal = g
	}
	snap := a.Insights(ctx, ownerID, q.MonthQuery, today)
	if !snap.Success {
		return Result[insights.Simulation]{Failure: snap.Failure}
	}
	return ok(insights.Simulate(snap.Data, insights.SimulationInput{
		Category:     q.Category,
		ReductionPct: q.ReductionPct,
		MonthlyGoal:  goal,
	}))
}

func (a *Actions) Summary(ctx context.Context, ownerID string, q MonthQuery, today core.Date) Result[core.MonthlySummary] {
	q, base, err := a.monthAndBase(ctx, ownerID, q, today)
	if err == nil {
		var s core.MonthlySummary
		if s, err = a.Analytics.Summary(ctx, ownerID, q.Month, q.Year, base); err == nil {
			return ok(s)
		}
	}
	a.logFailure(ctx, "summary", ownerID, err)
	return fail[core.MonthlySummary](err, "Error al cargar el resumen")
}
