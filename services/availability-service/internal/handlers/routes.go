package handlers

import "net/http"

// Mount registers the public API on mux.
func Mount(mux *http.ServeMux, slots *SlotHandler, bookings *BookingHandler, rules *AvailabilityHandler) {
	mux.HandleFunc("/api/v1/slots", slots.Slots)
	mux.HandleFunc("/api/v1/slots/check", slots.Check)
	mux.HandleFunc("/api/v1/bookings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			bookings.Create(w, r)
			return
		}
		bookings.List(w, r)
	})
	mux.HandleFunc("/api/v1/bookings/status", bookings.ChangeStatus)
	mux.HandleFunc("/api/v1/bookings/reschedule", bookings.Reschedule)
	mux.Handle("/api/v1/staff/availability", rules)
}
