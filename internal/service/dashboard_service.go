package service

import (
	"time"

	"go-rental-ws/internal/repository"
)

type DashboardService interface {
	GetBookingMovement(days int) ([]repository.BookingMovementData, error)
	GetDashboardStats() (*repository.DashboardStats, error)
}

type dashboardService struct {
	orderRepo repository.OrderRepository
	loc       *time.Location
}

func NewDashboardService(orderRepo repository.OrderRepository, loc *time.Location) DashboardService {
	return &dashboardService{orderRepo: orderRepo, loc: loc}
}

func (s *dashboardService) GetBookingMovement(days int) ([]repository.BookingMovementData, error) {
	if days <= 0 {
		days = 7
	}
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.orderRepo.GetBookingMovement(startDate, endDate)
}

// GetDashboardStats counts today in the business timezone.
func (s *dashboardService) GetDashboardStats() (*repository.DashboardStats, error) {
	now := time.Now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	return s.orderRepo.GetDashboardStats(dayStart, dayEnd)
}
