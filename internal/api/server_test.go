package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kajrofficep/cafeteria/internal/api/middleware"
	"github.com/kajrofficep/cafeteria/internal/identity"
	"github.com/kajrofficep/cafeteria/internal/meal"
	"github.com/kajrofficep/cafeteria/internal/model"
	"github.com/kajrofficep/cafeteria/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type mockIdentity struct {
	byIDFn           func(ctx context.Context, id uint) (*model.User, error)
	listFn           func(ctx context.Context) ([]model.User, error)
	updateProfileFn  func(ctx context.Context, userID uint, upd identity.ProfileUpdate) (*model.User, error)
	updateRoleFn     func(ctx context.Context, userID uint, role model.Role) (*model.User, error)
	updatePasswordFn func(ctx context.Context, userID uint, newPassword string) error
}

func (m *mockIdentity) ByID(ctx context.Context, id uint) (*model.User, error) {
	if m.byIDFn == nil {
		return nil, identity.ErrNotFound
	}
	return m.byIDFn(ctx, id)
}

func (m *mockIdentity) List(ctx context.Context) ([]model.User, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx)
}

func (m *mockIdentity) UpdateProfile(ctx context.Context, userID uint, upd identity.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateProfileFn(ctx, userID, upd)
}

func (m *mockIdentity) UpdateRole(ctx context.Context, userID uint, role model.Role) (*model.User, error) {
	if m.updateRoleFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateRoleFn(ctx, userID, role)
}

func (m *mockIdentity) UpdatePassword(ctx context.Context, userID uint, newPassword string) error {
	if m.updatePasswordFn == nil {
		return errors.New("not implemented")
	}
	return m.updatePasswordFn(ctx, userID, newPassword)
}

type mockMeals struct {
	upsertFn func(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error)
	listFn   func(ctx context.Context, userID uint) ([]model.Meal, error)
}

func (m *mockMeals) Upsert(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error) {
	if m.upsertFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.upsertFn(ctx, userID, date, sel, rates)
}

func (m *mockMeals) ListUpcoming(ctx context.Context, userID uint) ([]model.Meal, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx, userID)
}

// newTestRouter 挂载与生产环境一致的受保护路由，
// 用注入的 userID 与角色替代 JWT 中间件。
func newTestRouter(ids IdentityService, meals MealService, userID uint, role model.Role) *gin.Engine {
	metrics.InitMetrics()
	gin.SetMode(gin.TestMode)

	s := &Server{ids: ids, meals: meals}

	r := gin.New()
	inject := func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}

	r.GET("/profile", inject, s.handleViewProfile)
	r.PUT("/profile/update", inject, s.handleUpdateProfile)
	r.PUT("/profile/update_password", inject, s.handleUpdatePassword)
	r.GET("/meals", inject, s.handleListMeals)
	r.POST("/meals", inject, s.handleUpsertMeal)
	r.GET("/users", inject, middleware.RequireRole(model.RoleAdmin), s.handleListUsers)
	r.POST("/admin/users", inject, middleware.RequireRole(model.RoleAdmin), s.handleUpdateUserRole)
	r.GET("/admin/profile/:id", inject, middleware.RequireRole(model.RoleAdmin), s.handleAdminViewProfile)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpsertMealSuccess(t *testing.T) {
	var gotDate time.Time
	meals := &mockMeals{
		upsertFn: func(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error) {
			if userID != 7 {
				t.Fatalf("userID = %d, want 7", userID)
			}
			gotDate = date
			m := &model.Meal{
				ID: 1, UserID: userID, MealDate: date,
				Breakfast: sel.Breakfast, Lunch: sel.Lunch, Dinner: sel.Dinner,
				BreakfastRate: 100, LunchRate: 150, DinnerRate: 200,
			}
			m.RecalculateTotal()
			return m, nil
		},
	}
	r := newTestRouter(&mockIdentity{}, meals, 7, model.RoleUser)

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	w := doJSON(t, r, http.MethodPost, "/meals", gin.H{
		"meal_date": tomorrow,
		"breakfast": true,
		"lunch":     true,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if gotDate.Format("2006-01-02") != tomorrow {
		t.Fatalf("service got date %s, want %s", gotDate.Format("2006-01-02"), tomorrow)
	}

	var resp struct {
		Meal mealResponse `json:"meal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Meal.TotalCost != 250 {
		t.Fatalf("total_cost = %d, want 250", resp.Meal.TotalCost)
	}
}

func TestUpsertMealWindowClosed(t *testing.T) {
	meals := &mockMeals{
		upsertFn: func(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error) {
			return nil, &meal.WindowClosedError{Meal: meal.Breakfast}
		},
	}
	r := newTestRouter(&mockIdentity{}, meals, 7, model.RoleUser)

	w := doJSON(t, r, http.MethodPost, "/meals", gin.H{
		"meal_date": time.Now().Format("2006-01-02"),
		"breakfast": true,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpsertMealOutOfRange(t *testing.T) {
	meals := &mockMeals{
		upsertFn: func(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error) {
			return nil, meal.ErrOutOfRange
		},
	}
	r := newTestRouter(&mockIdentity{}, meals, 7, model.RoleUser)

	w := doJSON(t, r, http.MethodPost, "/meals", gin.H{
		"meal_date": "2020-01-01",
		"lunch":     true,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpsertMealInvalidDate(t *testing.T) {
	called := false
	meals := &mockMeals{
		upsertFn: func(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error) {
			called = true
			return nil, nil
		},
	}
	r := newTestRouter(&mockIdentity{}, meals, 7, model.RoleUser)

	w := doJSON(t, r, http.MethodPost, "/meals", gin.H{"meal_date": "01/02/2026"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if called {
		t.Fatal("service should not be called for malformed dates")
	}
}

func TestListMealsIncludesEditableDates(t *testing.T) {
	today := meal.DateOf(time.Now())
	meals := &mockMeals{
		listFn: func(ctx context.Context, userID uint) ([]model.Meal, error) {
			return []model.Meal{{ID: 1, UserID: userID, MealDate: today, Lunch: true, LunchRate: 150, TotalCost: 150}}, nil
		},
	}
	r := newTestRouter(&mockIdentity{}, meals, 7, model.RoleUser)

	w := doJSON(t, r, http.MethodGet, "/meals", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Dates []string       `json:"dates"`
		Meals []mealResponse `json:"meals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Dates) != meal.HorizonDays+1 {
		t.Fatalf("len(dates) = %d, want %d", len(resp.Dates), meal.HorizonDays+1)
	}
	if resp.Dates[0] != today.Format("2006-01-02") {
		t.Fatalf("dates[0] = %s, want today", resp.Dates[0])
	}
	if len(resp.Meals) != 1 || resp.Meals[0].TotalCost != 150 {
		t.Fatalf("unexpected meals payload: %+v", resp.Meals)
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	ids := &mockIdentity{
		listFn: func(ctx context.Context) ([]model.User, error) {
			return []model.User{{ID: 1, Username: "alice", Role: model.RoleAdmin}}, nil
		},
	}

	r := newTestRouter(ids, &mockMeals{}, 1, model.RoleUser)
	w := doJSON(t, r, http.MethodGet, "/users", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status as user = %d, want 403", w.Code)
	}

	r = newTestRouter(ids, &mockMeals{}, 1, model.RoleModerator)
	w = doJSON(t, r, http.MethodGet, "/users", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status as moderator = %d, want 403", w.Code)
	}

	r = newTestRouter(ids, &mockMeals{}, 1, model.RoleAdmin)
	w = doJSON(t, r, http.MethodGet, "/users", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status as admin = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestUpdateUserRole(t *testing.T) {
	ids := &mockIdentity{
		updateRoleFn: func(ctx context.Context, userID uint, role model.Role) (*model.User, error) {
			if userID == 404 {
				return nil, identity.ErrNotFound
			}
			return &model.User{ID: userID, Username: "bob", Role: role}, nil
		},
	}
	r := newTestRouter(ids, &mockMeals{}, 1, model.RoleAdmin)

	w := doJSON(t, r, http.MethodPost, "/admin/users", gin.H{"user_id": 2, "role": "moderator"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/admin/users", gin.H{"user_id": 2, "role": "superuser"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status for invalid role = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/admin/users", gin.H{"user_id": 404, "role": "admin"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status for missing user = %d, want 404", w.Code)
	}
}

func TestAdminViewProfileNotFound(t *testing.T) {
	ids := &mockIdentity{
		byIDFn: func(ctx context.Context, id uint) (*model.User, error) {
			return nil, identity.ErrNotFound
		},
	}
	r := newTestRouter(ids, &mockMeals{}, 1, model.RoleAdmin)

	w := doJSON(t, r, http.MethodGet, "/admin/profile/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdatePasswordRejectsEmpty(t *testing.T) {
	ids := &mockIdentity{
		updatePasswordFn: func(ctx context.Context, userID uint, newPassword string) error {
			return identity.ErrMissingPassword
		},
	}
	r := newTestRouter(ids, &mockMeals{}, 7, model.RoleUser)

	w := doJSON(t, r, http.MethodPut, "/profile/update_password", gin.H{"new_password": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	ids := &mockIdentity{
		updateProfileFn: func(ctx context.Context, userID uint, upd identity.ProfileUpdate) (*model.User, error) {
			if upd.FullName == nil || *upd.FullName != "New Name" {
				t.Fatalf("full_name = %v, want New Name", upd.FullName)
			}
			if upd.Email != nil {
				t.Fatal("email should stay unset")
			}
			return &model.User{ID: userID, Username: "carol", FullName: *upd.FullName, Role: model.RoleUser}, nil
		},
	}
	r := newTestRouter(ids, &mockMeals{}, 7, model.RoleUser)

	w := doJSON(t, r, http.MethodPut, "/profile/update", gin.H{"full_name": "New Name"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
