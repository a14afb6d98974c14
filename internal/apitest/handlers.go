package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

func (s *Server) authBody(access, refresh string, user *models.User) map[string]any {
	body := map[string]any{"user": user}
	if s.useTokenAliases {
		body["access_token"] = access
		if refresh != "" {
			body["refresh_token"] = refresh
		}
	} else {
		body["access"] = access
		if refresh != "" {
			body["refresh"] = refresh
		}
	}
	return body
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[req.Email]
	if !ok || acct.password != req.Password {
		writeFieldError(w, "non_field_errors", "Unable to log in with provided credentials.")
		return
	}
	access, refresh := s.issueLocked(req.Email)
	user := acct.user
	writeJSON(w, http.StatusOK, s.authBody(access, refresh, &user))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	if req.Password1 != req.Password2 {
		writeFieldError(w, "non_field_errors", "The two password fields didn't match.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeFieldError(w, "email", "A user is already registered with this e-mail address.")
		return
	}
	user := s.addUserLocked(req.Email, req.Password1)
	if !s.tokensOnSignup {
		writeDetail(w, http.StatusCreated, "Verification e-mail sent.")
		return
	}
	access, refresh := s.issueLocked(req.Email)
	writeJSON(w, http.StatusCreated, s.authBody(access, refresh, &user))
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[req.Refresh]
	if s.rejectRefresh || !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	writeJSON(w, http.StatusOK, s.authBody(s.accessTokenLocked(email), "", nil))
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) findHabitLocked(id int64) (int, *models.Habit) {
	for i, h := range s.habits {
		if h.ID == id {
			return i, h
		}
	}
	return -1, nil
}

func (s *Server) viewLocked(h *models.Habit, date string) models.Habit {
	v := h.Clone()
	v.TodayValue = s.completions[h.ID][date]
	return v
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(constants.DateFormat)
	}
	archivedOnly := r.URL.Query().Get("archived_only") == "true"

	s.mu.Lock()
	gate := s.gates[date]
	s.mu.Unlock()
	if gate != nil && !archivedOnly {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Habit{}
	for _, h := range s.habits {
		if h.Archived == archivedOnly {
			out = append(out, s.viewLocked(h, date))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) categoryRefLocked(id int64) *models.CategoryRef {
	for _, c := range s.categories {
		if c.ID == id {
			return &models.CategoryRef{ID: c.ID, Name: c.Name}
		}
	}
	return nil
}

func (s *Server) tagRefsLocked(ids []int64) ([]models.TagRef, bool) {
	refs := []models.TagRef{}
	for _, id := range ids {
		found := false
		for _, t := range s.tags {
			if t.ID == id {
				refs = append(refs, models.TagRef{ID: t.ID, Name: t.Name, Color: t.Color})
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return refs, true
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	var def models.HabitDefinition
	if err := decode(r, &def); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	if strings.TrimSpace(def.Name) == "" {
		writeFieldError(w, "name", "This field may not be blank.")
		return
	}
	if def.MetricType == "" {
		def.MetricType = constants.MetricBoolean
	}
	if !def.MetricType.Valid() {
		writeFieldError(w, "metric_type", "\""+string(def.MetricType)+"\" is not a valid choice.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := &models.Habit{
		Name:       def.Name,
		MetricType: def.MetricType,
		Unit:       def.Unit,
		MaxValue:   def.MaxValue,
		Icon:       def.Icon,
		Color:      def.Color,
		Tags:       []models.TagRef{},
	}
	if def.CategoryID != nil {
		if h.Category = s.categoryRefLocked(*def.CategoryID); h.Category == nil {
			writeFieldError(w, "category_id", "Invalid pk - object does not exist.")
			return
		}
	}
	if len(def.TagIDs) > 0 {
		tags, ok := s.tagRefsLocked(def.TagIDs)
		if !ok {
			writeFieldError(w, "tag_ids", "Invalid pk - object does not exist.")
			return
		}
		h.Tags = tags
	}
	s.nextID++
	h.ID = s.nextID
	s.habits = append(s.habits, h)
	writeJSON(w, http.StatusCreated, s.viewLocked(h, time.Now().Format(constants.DateFormat)))
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	var fields map[string]json.RawMessage
	if err := decode(r, &fields); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, h := s.findHabitLocked(id)
	if h == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	updated := h.Clone()
	for key, raw := range fields {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(raw, &updated.Name)
			if err == nil && strings.TrimSpace(updated.Name) == "" {
				writeFieldError(w, "name", "This field may not be blank.")
				return
			}
		case "metric_type":
			err = json.Unmarshal(raw, &updated.MetricType)
			if err == nil && !updated.MetricType.Valid() {
				writeFieldError(w, "metric_type", "\""+string(updated.MetricType)+"\" is not a valid choice.")
				return
			}
		case "unit":
			err = json.Unmarshal(raw, &updated.Unit)
		case "max_value":
			err = json.Unmarshal(raw, &updated.MaxValue)
		case "icon":
			err = json.Unmarshal(raw, &updated.Icon)
		case "color":
			err = json.Unmarshal(raw, &updated.Color)
		case "category_id":
			var cid *int64
			if err = json.Unmarshal(raw, &cid); err == nil {
				updated.Category = nil
				if cid != nil {
					if updated.Category = s.categoryRefLocked(*cid); updated.Category == nil {
						writeFieldError(w, "category_id", "Invalid pk - object does not exist.")
						return
					}
				}
			}
		case "tag_ids":
			var ids []int64
			if err = json.Unmarshal(raw, &ids); err == nil {
				tags, ok := s.tagRefsLocked(ids)
				if !ok {
					writeFieldError(w, "tag_ids", "Invalid pk - object does not exist.")
					return
				}
				updated.Tags = tags
			}
		}
		if err != nil {
			writeFieldError(w, key, "Invalid value.")
			return
		}
	}
	*h = updated
	writeJSON(w, http.StatusOK, s.viewLocked(h, time.Now().Format(constants.DateFormat)))
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	i, h := s.findHabitLocked(id)
	if h == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	s.habits = append(s.habits[:i], s.habits[i+1:]...)
	delete(s.completions, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setArchived(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r)
		s.mu.Lock()
		defer s.mu.Unlock()
		_, h := s.findHabitLocked(id)
		if h == nil {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		h.Archived = archived
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) completeHabit(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req models.CompletionRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	if _, err := time.Parse(constants.DateFormat, req.Date); err != nil {
		writeFieldError(w, "date", "Date has wrong format. Use YYYY-MM-DD.")
		return
	}
	if req.Value < 0 {
		writeFieldError(w, "value", "Ensure this value is greater than or equal to 0.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, h := s.findHabitLocked(id)
	if h == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if s.completions[id] == nil {
		s.completions[id] = make(map[string]float64)
	}
	s.completions[id][req.Date] = req.Value
	writeJSON(w, http.StatusOK, map[string]any{"habit": id, "value": req.Value, "date": req.Date})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFieldError(w, "name", "This field may not be blank.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, req.Name) {
			writeFieldError(w, "name", "category with this name already exists.")
			return
		}
	}
	s.nextID++
	c := &models.Category{ID: s.nextID, Name: req.Name, Order: req.Order}
	s.categories = append(s.categories, c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) findCategoryLocked(id int64) (int, *models.Category) {
	for i, c := range s.categories {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req models.CategoryRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, c := s.findCategoryLocked(id)
	if c == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Order != nil {
		c.Order = req.Order
	}
	for _, h := range s.habits {
		if h.Category != nil && h.Category.ID == id {
			h.Category.Name = c.Name
		}
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	i, c := s.findCategoryLocked(id)
	if c == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	for _, h := range s.habits {
		if h.Category != nil && h.Category.ID == id {
			h.Category = nil
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateLayout(w http.ResponseWriter, r *http.Request) {
	var req models.LayoutRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range req.Layout {
		_, c := s.findCategoryLocked(entry.ID)
		if c == nil {
			writeFieldError(w, "layout", "Unknown category "+strconv.FormatInt(entry.ID, 10)+".")
			return
		}
	}
	for _, entry := range req.Layout {
		_, c := s.findCategoryLocked(entry.ID)
		order := entry.Order
		c.Order = &order
	}
	sort.SliceStable(s.categories, func(i, j int) bool {
		return s.categories[i].SortOrder() < s.categories[j].SortOrder()
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "layout updated"})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, *t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var req models.TagRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFieldError(w, "name", "This field may not be blank.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &models.Tag{ID: s.nextID, Name: req.Name, Color: req.Color}
	s.tags = append(s.tags, t)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) findTagLocked(id int64) (int, *models.Tag) {
	for i, t := range s.tags {
		if t.ID == id {
			return i, t
		}
	}
	return -1, nil
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req models.TagPatch
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, t := s.findTagLocked(id)
	if t == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeFieldError(w, "name", "This field may not be blank.")
			return
		}
		t.Name = *req.Name
	}
	if req.Color != nil {
		t.Color = *req.Color
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	i, t := s.findTagLocked(id)
	if t == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	s.tags = append(s.tags[:i], s.tags[i+1:]...)
	for _, h := range s.habits {
		kept := h.Tags[:0]
		for _, ref := range h.Tags {
			if ref.ID != id {
				kept = append(kept, ref)
			}
		}
		h.Tags = kept
	}
	w.WriteHeader(http.StatusNoContent)
}
