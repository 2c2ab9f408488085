package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/kajrofficep/cafeteria/internal/meal"
	"github.com/kajrofficep/cafeteria/internal/model"
	"github.com/kajrofficep/cafeteria/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type mealUpsertRequest struct {
	MealDate      string `json:"meal_date" binding:"required"`
	Breakfast     bool   `json:"breakfast"`
	Lunch         bool   `json:"lunch"`
	Dinner        bool   `json:"dinner"`
	BreakfastRate int    `json:"breakfast_rate"`
	LunchRate     int    `json:"lunch_rate"`
	DinnerRate    int    `json:"dinner_rate"`
}

type mealResponse struct {
	ID            uint   `json:"id"`
	MealDate      string `json:"meal_date"`
	Breakfast     bool   `json:"breakfast"`
	Lunch         bool   `json:"lunch"`
	Dinner        bool   `json:"dinner"`
	BreakfastRate int    `json:"breakfast_rate"`
	LunchRate     int    `json:"lunch_rate"`
	DinnerRate    int    `json:"dinner_rate"`
	TotalCost     int    `json:"total_cost"`
}

func toMealResponse(m *model.Meal) mealResponse {
	return mealResponse{
		ID:            m.ID,
		MealDate:      m.MealDate.Format(dateLayout),
		Breakfast:     m.Breakfast,
		Lunch:         m.Lunch,
		Dinner:        m.Dinner,
		BreakfastRate: m.BreakfastRate,
		LunchRate:     m.LunchRate,
		DinnerRate:    m.DinnerRate,
		TotalCost:     m.TotalCost,
	}
}

// handleListMeals 返回当前用户在可编辑区间内的订餐记录，
// 并附带该区间内的全部日期，方便前端渲染未订餐的空位。
//
// GET /meals
func (s *Server) handleListMeals(c *gin.Context) {
	meals, err := s.meals.ListUpcoming(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list meals failed"})
		return
	}

	today := meal.DateOf(time.Now())
	dates := make([]string, 0, meal.HorizonDays+1)
	for i := 0; i <= meal.HorizonDays; i++ {
		dates = append(dates, today.AddDate(0, 0, i).Format(dateLayout))
	}

	out := make([]mealResponse, 0, len(meals))
	for i := range meals {
		out = append(out, toMealResponse(&meals[i]))
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates, "meals": out})
}

// handleUpsertMeal 为当前用户创建或更新某天的订餐记录。
//
// POST /meals
func (s *Server) handleUpsertMeal(c *gin.Context) {
	var req mealUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.ParseInLocation(dateLayout, req.MealDate, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal_date, expected YYYY-MM-DD"})
		return
	}

	m, err := s.meals.Upsert(c.Request.Context(), getUserID(c), date,
		meal.Selections{
			Breakfast: req.Breakfast,
			Lunch:     req.Lunch,
			Dinner:    req.Dinner,
		},
		meal.Rates{
			Breakfast: req.BreakfastRate,
			Lunch:     req.LunchRate,
			Dinner:    req.DinnerRate,
		},
	)
	if err != nil {
		var windowErr *meal.WindowClosedError
		switch {
		case errors.Is(err, meal.ErrOutOfRange):
			metrics.MealRejectedTotal.WithLabelValues("out_of_range").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "you can only order meals for today through the next 3 days"})
		case errors.As(err, &windowErr):
			metrics.MealRejectedTotal.WithLabelValues("window_closed").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": string(windowErr.Meal) + " can no longer be changed for today"})
		default:
			metrics.MealRejectedTotal.WithLabelValues("internal").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save meal failed"})
		}
		return
	}

	metrics.MealUpsertTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"message": "Meal updated successfully!",
		"meal":    toMealResponse(m),
	})
}
