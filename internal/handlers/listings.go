package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/listview"
	"github.com/Fn-M/HousingManager/internal/search"
	"github.com/gin-gonic/gin"
)

// listQuery reads ?q=&status=&location=a,b&sort=&order=
func listQuery(c *gin.Context) listview.Query {
	q := listview.Query{
		Search: c.Query("q"),
		Status: c.Query("status"),
	}
	for _, raw := range c.QueryArray("location") {
		for _, loc := range strings.Split(raw, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				q.Locations = append(q.Locations, loc)
			}
		}
	}
	if key := c.Query("sort"); listview.IsSortable(key) {
		q.Sort = listview.Sort{Key: key, Direction: listview.ParseDirection(c.Query("order"))}
	}
	return q
}

func (h *Handler) getListings(c *gin.Context) {
	res := h.Service.Listings(listQuery(c))
	c.JSON(http.StatusOK, gin.H{
		"listings":  res.Items,
		"shown":     res.Shown,
		"total":     res.Total,
		"cities":    res.Cities,
		"statuses":  res.Statuses,
		"fetchedAt": h.Service.Store().FetchedAt(),
	})
}

func (h *Handler) getListing(c *gin.Context) {
	l, err := h.Service.Listing(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type addListingRequest struct {
	URL      string     `json:"url" binding:"required"`
	ViewDate *time.Time `json:"viewDate"`
}

func (h *Handler) addListing(c *gin.Context) {
	var req addListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id, err := h.Service.AddListing(c.Request.Context(), req.URL, req.ViewDate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) refreshListings(c *gin.Context) {
	res, err := h.Service.Refresh(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) deleteListing(c *gin.Context) {
	if err := h.Service.DeleteListing(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) searchListings(c *gin.Context) {
	if h.Search == nil {
		unavailable(c, "Search")
		return
	}

	params := search.FilterParams{
		Query:    c.Query("q"),
		Limit:    int64(queryLimit(c, 20, 200)),
		SortBy:   c.Query("sort_by"),
		Statuses: c.QueryArray("status"),
	}
	if raw := c.Query("location"); raw != "" {
		params.Cities = strings.Split(raw, ",")
	}
	if v, err := strconv.ParseFloat(c.Query("min_price"), 64); err == nil {
		params.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil {
		params.MaxPrice = &v
	}
	if v, err := strconv.ParseFloat(c.Query("min_rooms"), 64); err == nil {
		params.MinRooms = &v
	}

	listings, err := h.Search.FilterSearch(params)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Remote, "handlers.search", "Search failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(listings),
		"listings": listings,
	})
}

func (h *Handler) getSearchFacets(c *gin.Context) {
	if h.Search == nil {
		unavailable(c, "Search")
		return
	}
	facets := strings.Split(c.DefaultQuery("facets", "status,city"), ",")
	dist, err := h.Search.GetFacets(facets)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Remote, "handlers.facets", "Search failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"facets": dist})
}

func (h *Handler) getRecentChanges(c *gin.Context) {
	if h.Changes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Change history is not available (requires MySQL/GORM)",
		})
		return
	}

	changes, err := h.Changes.GetRecentChanges(c.Request.Context(), queryLimit(c, 50, 500))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(changes),
		"changes": changes,
	})
}

func (h *Handler) getListingHistory(c *gin.Context) {
	if h.Changes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Change history is not available (requires MySQL/GORM)",
		})
		return
	}

	id := c.Param("id")
	changes, err := h.Changes.GetListingHistory(c.Request.Context(), id, queryLimit(c, 30, 500))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listing_id": id,
		"count":      len(changes),
		"changes":    changes,
	})
}
