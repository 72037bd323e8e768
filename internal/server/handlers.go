package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/surgeonmatch/gateway/internal/availability"
	"github.com/surgeonmatch/gateway/internal/directory"
	"github.com/surgeonmatch/gateway/internal/util"
)

// Handlers holds the business services behind the gateway routes.
type Handlers struct {
	directory    *directory.Service
	availability *availability.Cache
}

// NewHandlers creates the route handlers.
func NewHandlers(directorySvc *directory.Service, availabilityCache *availability.Cache) *Handlers {
	return &Handlers{
		directory:    directorySvc,
		availability: availabilityCache,
	}
}

// SearchSurgeons handles GET /v1/surgeons.
func (h *Handlers) SearchSurgeons(c *gin.Context) {
	query, err := parseSurgeonQuery(c)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	results, err := h.directory.Search(c.Request.Context(), query)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// parseSurgeonQuery decodes directory query parameters. Unparseable
// values surface as field errors rather than silent defaults.
func parseSurgeonQuery(c *gin.Context) (directory.Query, error) {
	verr := util.NewValidationError("invalid surgeon query")
	var query directory.Query

	query.Latitude = parseFloatParam(c, "lat", verr, true)
	query.Longitude = parseFloatParam(c, "lng", verr, true)
	query.RadiusMiles = parseFloatParam(c, "radiusMiles", verr, true)

	if raw, ok := c.GetQuery("specialtyCode"); ok {
		query.SpecialtyCode = &raw
	}
	if raw, ok := c.GetQuery("minClaimVolume"); ok {
		value, err := strconv.Atoi(raw)
		if err != nil {
			verr.AddField("minClaimVolume", "must be an integer")
		} else {
			query.MinClaimVolume = &value
		}
	}
	if raw, ok := c.GetQuery("acceptsMedicare"); ok {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			verr.AddField("acceptsMedicare", "must be a boolean")
		} else {
			query.AcceptsMedicare = &value
		}
	}

	if len(verr.Fields) > 0 {
		return directory.Query{}, verr
	}
	return query, nil
}

func parseFloatParam(c *gin.Context, name string, verr *util.ValidationError, required bool) float64 {
	raw, ok := c.GetQuery(name)
	if !ok {
		if required {
			verr.AddField(name, "is required")
		}
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.AddField(name, "must be a number")
		return 0
	}
	return value
}

// availabilityInquiryRequest is the POST /v1/availabilityInquiry body.
type availabilityInquiryRequest struct {
	NPIList       []string `json:"npiList"`
	RequestedDate string   `json:"requestedDate"`
}

// AvailabilityInquiry handles POST /v1/availabilityInquiry. Elements
// resolve independently; one failed upstream lookup never fails the
// batch.
func (h *Handlers) AvailabilityInquiry(c *gin.Context) {
	var req availabilityInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := util.NewValidationError("malformed request body")
		writeDomainError(c, verr)
		return
	}

	if err := validateInquiry(req); err != nil {
		writeDomainError(c, err)
		return
	}

	results := h.availability.GetBatch(c.Request.Context(), req.NPIList, req.RequestedDate)
	c.JSON(http.StatusOK, results)
}

func validateInquiry(req availabilityInquiryRequest) error {
	verr := util.NewValidationError("invalid availability inquiry")

	if len(req.NPIList) == 0 {
		verr.AddField("npiList", "must not be empty")
	}
	for _, npi := range req.NPIList {
		if !directory.ValidNPI(npi) {
			verr.AddField("npiList", "malformed npi: "+npi)
			break
		}
	}
	if _, err := availability.ParseDate(req.RequestedDate); err != nil {
		verr.AddField("requestedDate", "malformed date, want YYYY-MM-DD")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// SurgeonAvailability handles GET /v1/surgeons/:npi/availability. A
// single-key upstream failure surfaces as 502 rather than a failed
// batch element.
func (h *Handlers) SurgeonAvailability(c *gin.Context) {
	npi := c.Param("npi")

	if _, err := h.directory.Lookup(c.Request.Context(), npi); err != nil {
		writeDomainError(c, err)
		return
	}

	date := c.Query("date")
	if _, err := availability.ParseDate(date); err != nil {
		writeDomainError(c, err)
		return
	}

	entry, err := h.availability.Get(c.Request.Context(), npi, date)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
