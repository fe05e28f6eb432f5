package domain

type CountryCount struct {
	Country      string `json:"country"`
	Reservations int    `json:"reservations"`
}

type MonthRevenue struct {
	Month   string `json:"month"` // YYYY-MM
	Revenue Money  `json:"revenue"`
}

type AdminStats struct {
	TotalClients          int            `json:"total_clients"`
	TotalAdmins           int            `json:"total_admins"`
	TotalOffers           int            `json:"total_offers"`
	TotalReservations     int            `json:"total_reservations"`
	ConfirmedReservations int            `json:"confirmed_reservations"`
	BlockedReservations   int            `json:"blocked_reservations"`
	CancelledReservations int            `json:"cancelled_reservations"`
	TotalRevenue          Money          `json:"total_revenue"`
	PopularCountries      []CountryCount `json:"popular_countries"`
	MonthlyRevenue        []MonthRevenue `json:"monthly_revenue"`
}
