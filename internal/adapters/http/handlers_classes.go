package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"makerspace/internal/application/orchestrators"
	"makerspace/internal/application/projections"
	"makerspace/internal/domain/class"
)

func classDeps() orchestrators.ClassDeps {
	return orchestrators.ClassDeps{Classes: stores.ClassStore, Accounts: stores.AccountStore, Now: timeNow, GenerateID: generateID}
}

func classListDeps() projections.ClassListDeps {
	return projections.ClassListDeps{ClassStore: stores.ClassStore, Rules: rules}
}

// handleListClasses handles GET /api/classes (public)
func handleListClasses(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryClasses(r.Context(), "", classListDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetClass handles GET /api/classes/{id} (public)
func handleGetClass(w http.ResponseWriter, r *http.Request) {
	c, err := projections.QueryClass(r.Context(), r.PathValue("id"), classListDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleInstructorClasses lists the caller's classes; admins see every class.
func handleInstructorClasses(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	instructorID := actor.ID
	switch {
	case actor.IsAdmin():
		instructorID = ""
	case !actor.IsInstructor:
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	list, err := projections.QueryClasses(r.Context(), instructorID, classListDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type sessionRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type saveClassRequest struct {
	Title        string           `json:"title" validate:"required,max=200"`
	Description  string           `json:"description" validate:"max=5000"`
	InstructorID string           `json:"instructorId"`
	Sessions     []sessionRequest `json:"sessions" validate:"required,min=1,dive"`
	MaxCapacity  int              `json:"maxCapacity" validate:"required,min=1"`
	Price        decimal.Decimal  `json:"price"`
}

func (req saveClassRequest) offering(id string) class.Offering {
	o := class.Offering{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: req.InstructorID,
		MaxCapacity:  req.MaxCapacity,
		Price:        req.Price,
	}
	for _, s := range req.Sessions {
		o.Sessions = append(o.Sessions, class.Session{Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime})
	}
	return o
}

func saveClass(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req saveClassRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	o, err := orchestrators.ExecuteSaveClass(r.Context(), orchestrators.SaveClassInput{
		Actor:    actorFrom(r),
		Offering: req.offering(id),
	}, classDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, status, o)
}

// handleCreateClass handles POST /api/classes
func handleCreateClass(w http.ResponseWriter, r *http.Request) {
	saveClass(w, r, "", http.StatusCreated)
}

// handleUpdateClass handles PUT /api/classes/{id}
func handleUpdateClass(w http.ResponseWriter, r *http.Request) {
	saveClass(w, r, r.PathValue("id"), http.StatusOK)
}

// handleDeleteClass handles DELETE /api/classes/{id}
func handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	if err := orchestrators.ExecuteDeleteClass(r.Context(), actorFrom(r), r.PathValue("id"), classDeps()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelfEnroll handles POST /api/classes/{id}/enroll for the caller.
func handleSelfEnroll(w http.ResponseWriter, r *http.Request) {
	e, err := orchestrators.ExecuteEnroll(r.Context(), orchestrators.EnrollInput{
		Actor:   actorFrom(r),
		ClassID: r.PathValue("id"),
	}, classDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

type addStudentRequest struct {
	UserID string `json:"userId" validate:"required_without=Name"`
	Name   string `json:"name" validate:"max=120"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// handleAddStudent handles POST /api/classes/{id}/students (admin or class instructor)
func handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req addStudentRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	e, err := orchestrators.ExecuteEnroll(r.Context(), orchestrators.EnrollInput{
		Actor:   actorFrom(r),
		ClassID: r.PathValue("id"),
		UserID:  req.UserID,
		Name:    req.Name,
		Email:   req.Email,
	}, classDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// loadManagedClass fetches a class the caller administers or teaches.
// POST: returns false when a response has already been written
func loadManagedClass(w http.ResponseWriter, r *http.Request) (class.Offering, bool) {
	o, err := stores.ClassStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return class.Offering{}, false
	}
	actor := actorFrom(r)
	if !actor.IsAdmin() && !o.IsTaughtBy(actor.ID) {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return class.Offering{}, false
	}
	return o, true
}

// handleListStudents handles GET /api/classes/{id}/students (admin or class instructor)
func handleListStudents(w http.ResponseWriter, r *http.Request) {
	o, ok := loadManagedClass(w, r)
	if !ok {
		return
	}
	roster, err := stores.ClassStore.ListEnrollments(r.Context(), o.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	if roster == nil {
		roster = []class.Enrollment{}
	}
	writeJSON(w, http.StatusOK, roster)
}

// handleRemoveStudent handles DELETE /api/classes/{id}/students/{studentId}
func handleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteRemoveStudent(r.Context(), actorFrom(r), r.PathValue("id"), r.PathValue("studentId"), classDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAttendanceSheet handles GET /api/classes/{id}/attendance (admin or class instructor)
func handleAttendanceSheet(w http.ResponseWriter, r *http.Request) {
	o, ok := loadManagedClass(w, r)
	if !ok {
		return
	}
	sheet, err := projections.QueryAttendanceSheet(r.Context(), o.ID, projections.AttendanceSheetDeps{
		ClassStore:      stores.ClassStore,
		AttendanceStore: stores.AttendanceStore,
		Rules:           rules,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

type markAttendanceRequest struct {
	EnrolledStudentID string `json:"enrolledStudentId" validate:"required"`
	SessionDate       string `json:"sessionDate" validate:"required,datetime=2006-01-02"`
	Present           bool   `json:"present"`
}

// handleMarkAttendance handles POST /api/classes/{id}/attendance
// POST: 200 with {record, autoGrant}; auto-grant failures never fail the request
func handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	result, err := orchestrators.ExecuteMarkAttendance(r.Context(), orchestrators.MarkAttendanceInput{
		Actor:             actorFrom(r),
		ClassID:           r.PathValue("id"),
		EnrolledStudentID: req.EnrolledStudentID,
		SessionDate:       req.SessionDate,
		Present:           req.Present,
	}, orchestrators.MarkAttendanceDeps{
		Classes:        stores.ClassStore,
		Attendance:     stores.AttendanceStore,
		Certifications: stores.CertificationStore,
		Rules:          rules,
		Audit:          stores.AuditStore,
		Events:         publisher,
		Now:            timeNow,
		GenerateID:     generateID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
