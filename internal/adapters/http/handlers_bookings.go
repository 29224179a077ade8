package web

import (
	"net/http"
	"strconv"

	"makerspace/internal/application/orchestrators"
	"makerspace/internal/application/projections"
	domainAccount "makerspace/internal/domain/account"
)

func bookingDeps() orchestrators.BookingDeps {
	return orchestrators.BookingDeps{
		Bookings:       stores.BookingStore,
		Accounts:       stores.AccountStore,
		Certifications: stores.CertificationStore,
		Catalog:        catalog,
		Rules:          rules,
		Events:         publisher,
		Location:       location,
		Now:            timeNow,
		GenerateID:     generateID,
	}
}

func availabilityDeps() projections.AvailabilityDeps {
	return projections.AvailabilityDeps{BookingStore: stores.BookingStore, Catalog: catalog, Location: location}
}

// callerUserType is the caller's user type, non-member when anonymous.
func callerUserType(r *http.Request) string {
	if p, ok := principal(r); ok {
		return p.Account.UserType
	}
	return domainAccount.TypeNonMember
}

// handleShopAreas lists the catalog priced for the caller (GET /api/shop-areas)
func handleShopAreas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, projections.QueryShopAreas(catalog, callerUserType(r)))
}

// handleAvailableHours handles GET /api/availability/hours?userType=&date=
// POST: body is {startHour, endHour} or null when the day is closed
func handleAvailableHours(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userType := q.Get("userType")
	if userType == "" {
		userType = callerUserType(r)
	}
	if !domainAccount.IsValidType(userType) {
		writeJSONError(w, http.StatusBadRequest, domainAccount.ErrInvalidType.Error())
		return
	}
	h, err := projections.QueryAllowedHours(userType, q.Get("date"), location)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleSlotAvailability handles GET /api/availability/slots?area=&sub=&date=&slot=
func handleSlotAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	avail, err := projections.QuerySlotAvailability(r.Context(), projections.SlotAvailabilityQuery{
		ShopArea: q.Get("area"),
		SubArea:  q.Get("sub"),
		Date:     q.Get("date"),
		TimeSlot: q.Get("slot"),
	}, availabilityDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// handleDayAvailability handles GET /api/availability/day?area=&sub=&date=
func handleDayAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := projections.QueryDayAvailability(r.Context(), projections.DayAvailabilityQuery{
		UserType: callerUserType(r),
		ShopArea: q.Get("area"),
		SubArea:  q.Get("sub"),
		Date:     q.Get("date"),
	}, availabilityDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// handleListBookings handles GET /api/bookings. Non-admins only see their own.
func handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actor := actorFrom(r)
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	list, err := projections.QueryBookings(r.Context(), projections.BookingListQuery{
		ViewerID:      actor.ID,
		ViewerIsAdmin: actor.IsAdmin(),
		UserID:        q.Get("userId"),
		Date:          q.Get("date"),
		ShopArea:      q.Get("shopArea"),
		Limit:         limit,
		Offset:        max(offset, 0),
	}, stores.BookingStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createBookingRequest struct {
	UserID   string `json:"userId"`
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	UserType string `json:"userType" validate:"omitempty,oneof=admin member non-member steward cave-pro"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot string `json:"timeSlot" validate:"required"`
	ShopArea string `json:"shopArea" validate:"required"`
	SubArea  string `json:"subArea"`
}

// handleCreateBooking handles POST /api/bookings
// POST: 201 with the booking; 403 with remediation on gate denial; 400 on full or duplicate
func handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	b, err := orchestrators.ExecuteCreateBooking(r.Context(), orchestrators.CreateBookingInput{
		Actor:    actorFrom(r),
		UserID:   req.UserID,
		Name:     req.Name,
		Email:    req.Email,
		UserType: req.UserType,
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
		ShopArea: req.ShopArea,
		SubArea:  req.SubArea,
	}, bookingDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// handleGetBooking handles GET /api/bookings/{id}
func handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := orchestrators.GetBooking(r.Context(), actorFrom(r), r.PathValue("id"), bookingDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type rescheduleBookingRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot string `json:"timeSlot" validate:"required"`
}

// handleRescheduleBooking handles PUT /api/bookings/{id}
func handleRescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req rescheduleBookingRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	b, err := orchestrators.ExecuteRescheduleBooking(r.Context(), orchestrators.RescheduleBookingInput{
		Actor:     actorFrom(r),
		BookingID: r.PathValue("id"),
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
	}, bookingDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleCancelBooking handles DELETE /api/bookings/{id}
func handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := orchestrators.ExecuteCancelBooking(r.Context(), actorFrom(r), r.PathValue("id"), bookingDeps()); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
