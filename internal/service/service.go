package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/membership-service/internal/billing"
	"gitlab.com/dirk.krummacker/membership-service/internal/form"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
	"gitlab.com/dirk.krummacker/membership-service/internal/store"
	"gitlab.com/dirk.krummacker/membership-service/internal/view"
	api "gitlab.com/dirk.krummacker/membership-service/pkg/model"
)

// allowedConfirm are the allowed values for the 'confirm' URL parameter.
var allowedConfirm = []string{"", "true", "false"}

// Service answers the REST API calls on behalf of a member store.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// New returns the service for the specified store.
func New(s *store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. If logging is
// false, gin's request logging is turned off.
func (s *Service) SetupHttpRouter(logging bool) *gin.Engine {
	var router *gin.Engine
	if logging {
		router = gin.Default()
	} else {
		s.logger.Info("turning off HTTP request logging")
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.GET("/members", s.findMembers)
	router.POST("/members", s.createMember)
	router.GET("/members/:id", s.findMemberByID)
	router.PUT("/members/:id", s.updateMemberByID)
	router.DELETE("/members/:id", s.deleteMemberByID)
	router.POST("/members/:id/payments", s.markMemberPaid)
	router.POST("/members/:id/reminders", s.sendReminder)
	router.GET("/stats", s.findStats)
	return router
}

// findMembers responds with the list of members as JSON, in the order they were added.
//
// The URL parameter 'search' is matched against the member's name, ignoring case, and against
// the member's contact, respecting case.
//
// The URL parameter 'status' restricts the result to the members with a given payment status.
// Valid values are 'all', 'paid', 'unpaid', 'overdue', and 'due-soon'. If it is omitted, all
// members are returned.
//
// Unlike a lookup by id, an empty result is not an error.
//
// REST API calls:
//
//	> curl "http://localhost:8080/members"
//	> curl "http://localhost:8080/members?search=shah"
//	> curl "http://localhost:8080/members?status=overdue"
//	> curl "http://localhost:8080/members?search=98450&status=due-soon"
func (s *Service) findMembers(c *gin.Context) {
	category, err := view.ParseCategory(c.Query("status"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid status parameter"})
		return
	}
	members := s.store.Filter(c.Query("search"), category)
	c.IndentedJSON(http.StatusOK, s.present(members))
}

// createMember adds the member specified in the request's JSON. The body holds the values of
// the member form; numbers may be given as JSON numbers or strings. Name, contact, and
// feeAmount are required. It responds with the full member data including the newly assigned
// id and the derived due date.
//
// Example REST API call:
//
//	> curl http://localhost:8080/members --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Asha Rao", "contact": "98450 11111", "membershipType": "monthly", "feeAmount": 1500, "lastPaymentDate": "2024-01-15"}'
func (s *Service) createMember(c *gin.Context) {
	var draft form.Draft
	if err := c.BindJSON(&draft); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	f := form.New(s.store)
	f.Load(draft)
	m, err := f.Submit(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err, m)
		return
	}
	c.IndentedJSON(http.StatusCreated, s.presentOne(m))
}

// findMemberByID locates the member whose ID value matches the id parameter of the request URL,
// then returns that member as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/members/1718000000000
func (s *Service) findMemberByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := s.store.Find(id)
	if err != nil {
		s.abortWithError(c, err, m)
		return
	}
	c.IndentedJSON(http.StatusOK, s.presentOne(m))
}

// updateMemberByID replaces the member whose ID value matches the id parameter of the request
// URL with the member specified in the request's JSON, and responds with the new version of the
// member. All form fields are replaced and fields missing from the body are cleared, except
// for joinDate which is kept. The due date is derived again from lastPaymentDate and
// membershipType.
//
// Example REST API call:
//
//	> curl http://localhost:8080/members/1718000000000 --request "PUT" --include --header "Content-Type: application/json" --data '{"name": "Asha Rao", "contact": "98450 11111", "membershipType": "yearly", "feeAmount": "15000", "joinDate": "2024-01-10"}'
func (s *Service) updateMemberByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var draft form.Draft
	if err := c.BindJSON(&draft); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	existing, err := s.store.Find(id)
	if err != nil {
		s.abortWithError(c, err, existing)
		return
	}
	f := form.New(s.store)
	f.Edit(existing)
	f.Load(draft)
	m, err := f.Submit(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err, m)
		return
	}
	c.IndentedJSON(http.StatusOK, s.presentOne(m))
}

// deleteMemberByID deletes the member whose ID value matches the id parameter of the request
// URL. Deleting is destructive, so the caller has to confirm it with the URL parameter
// 'confirm=true'; otherwise nothing is deleted and the CONFLICT status code is returned.
//
// Example REST API call:
//
//	> curl "http://localhost:8080/members/1718000000000?confirm=true" --request "DELETE"
func (s *Service) deleteMemberByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	confirm := c.Query("confirm")
	if !contains(allowedConfirm, confirm) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid confirm parameter"})
		return
	}
	if _, err := s.store.Find(id); err != nil {
		s.abortWithError(c, err, model.Member{})
		return
	}
	deleted, err := s.store.Delete(c.Request.Context(), id, store.ConfirmFunc(func(string) bool {
		return confirm == "true"
	}))
	if err != nil {
		s.abortWithError(c, err, model.Member{})
		return
	}
	if deleted {
		c.IndentedJSON(http.StatusOK, gin.H{"message": "member deleted"})
	} else if confirm != "true" {
		c.IndentedJSON(http.StatusConflict, gin.H{"message": "deletion not confirmed"})
	} else {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "member not found"})
	}
}

// markMemberPaid records that the member whose ID value matches the id parameter of the request
// URL paid today. The next due date is one plan interval from today. It responds with the
// updated member.
//
// Example REST API call:
//
//	> curl http://localhost:8080/members/1718000000000/payments --request "POST"
func (s *Service) markMemberPaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := s.store.MarkPaid(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err, m)
		return
	}
	c.IndentedJSON(http.StatusOK, s.presentOne(m))
}

// sendReminder produces the payment reminder for the member whose ID value matches the id
// parameter of the request URL. No message is actually sent anywhere; the reminder text is
// returned to the caller and logged.
//
// Example REST API call:
//
//	> curl http://localhost:8080/members/1718000000000/reminders --request "POST"
func (s *Service) sendReminder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := s.store.SendReminder(id)
	if err != nil {
		s.abortWithError(c, err, model.Member{})
		return
	}
	c.IndentedJSON(http.StatusOK, api.Reminder{
		Id:           r.Member.Id,
		Name:         r.Member.Name,
		Contact:      r.Member.Contact,
		DaysUntilDue: r.DaysUntilDue,
		Message:      r.Message,
		Text:         r.Text,
	})
}

// findStats responds with the number of members in total, with paid and unpaid fees, and with
// overdue payments.
//
// Example REST API call:
//
//	> curl http://localhost:8080/stats
func (s *Service) findStats(c *gin.Context) {
	stats := s.store.Stats()
	c.IndentedJSON(http.StatusOK, api.Stats{
		Total:   stats.Total,
		Paid:    stats.Paid,
		Unpaid:  stats.Unpaid,
		Overdue: stats.Overdue,
	})
}

// parseID reads the id parameter of the request URL. Ids that are not numbers cannot belong to
// any member, so they are answered with the NOT FOUND status code.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// abortWithError translates an error of the store into a response. If the change was applied
// but could not be saved, the member is included so that the client knows its current state.
func (s *Service) abortWithError(c *gin.Context, err error, m model.Member) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "member not found"})
	case errors.Is(err, store.ErrInvalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, store.ErrNotPersisted):
		body := gin.H{"message": store.SaveFailedNotice}
		if m.Id != 0 {
			body["member"] = s.presentOne(m)
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, body)
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": fmt.Sprintf("internal error: %v", err)})
	}
}

// present converts members into their API representation as of now.
func (s *Service) present(members []model.Member) []api.Member {
	result := make([]api.Member, 0, len(members))
	for _, m := range members {
		result = append(result, s.presentOne(m))
	}
	return result
}

func (s *Service) presentOne(m model.Member) api.Member {
	now := s.store.Now()
	out := api.Member{
		Id:              m.Id,
		Name:            m.Name,
		Age:             m.Age,
		Contact:         m.Contact,
		Email:           m.Email,
		Address:         m.Address,
		MembershipType:  string(m.MembershipType),
		FeeAmount:       m.FeeAmount.String(),
		FeePaid:         m.FeePaid,
		JoinDate:        m.JoinDate.String(),
		LastPaymentDate: m.LastPaymentDate.String(),
		DueDate:         m.DueDate.String(),
		Status:          string(billing.StatusOf(m.DueDate, now)),
	}
	if days, ok := billing.DaysUntil(m.DueDate, now); ok {
		out.DaysUntilDue = &days
	}
	return out
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
