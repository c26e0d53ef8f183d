package stub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type stubPost struct {
	ID         int
	Slug       string
	Status     string
	Title      string
	Excerpt    string
	Content    string
	AuthorID   int
	Categories []int
	Tags       []int
	Date       time.Time
}

type stubTerm struct {
	ID       int
	Name     string
	Taxonomy string
	Count    int
}

type stubComment struct {
	ID       int
	PostID   int
	ParentID int
	AuthorID int
	Content  string
	Date     time.Time
}

type stubMedia struct {
	ID       int
	Name     string
	MimeType string
	Size     int
	Date     time.Time
}

func renderedJSON(text string) map[string]string {
	return map[string]string{"rendered": "<p>" + text + "</p>"}
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// postJSON renders a post the way the content API does with _embed, so the
// client can format author, terms, and featured media from one response.
// Callers must hold s.mu.
func (s *Server) postJSON(p *stubPost) map[string]any {
	author := map[string]any{"id": p.AuthorID, "name": "Unknown"}
	if u, ok := s.users[p.AuthorID]; ok {
		author = map[string]any{
			"id":   u.ID,
			"name": u.Name,
			"avatar_urls": map[string]string{
				"96": "https://avatars.example.test/" + u.Username + "?s=96",
			},
		}
	}

	var termGroups [][]map[string]any
	for _, group := range []struct {
		taxonomy string
		ids      []int
	}{{"category", p.Categories}, {"post_tag", p.Tags}} {
		var terms []map[string]any
		for _, id := range group.ids {
			if t, ok := s.terms[group.taxonomy][id]; ok {
				terms = append(terms, map[string]any{"id": t.ID, "name": t.Name, "taxonomy": t.Taxonomy})
			}
		}
		termGroups = append(termGroups, terms)
	}

	return map[string]any{
		"id":      p.ID,
		"slug":    p.Slug,
		"status":  p.Status,
		"date":    p.Date.Format("2006-01-02T15:04:05"),
		"title":   renderedJSON(p.Title),
		"excerpt": renderedJSON(p.Excerpt),
		"content": renderedJSON(p.Content),
		"author":  p.AuthorID,
		"_embedded": map[string]any{
			"author":  []map[string]any{author},
			"wp:term": termGroups,
		},
	}
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	perPage := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		perPage = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []*stubPost
	for _, p := range s.posts {
		if search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Content), search) {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Date.After(posts[j].Date) })
	if len(posts) > perPage {
		posts = posts[:perPage]
	}

	out := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.postJSON(p))
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		wpError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	respond(w, http.StatusOK, s.postJSON(p))
}

type postInput struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Excerpt    string `json:"excerpt"`
	Status     string `json:"status"`
	Categories []int  `json:"categories"`
	Tags       []int  `json:"tags"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in postInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		wpError(w, http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): title")
		return
	}

	s.mu.Lock()
	p := &stubPost{
		ID:         s.allocID(),
		Slug:       slugify(in.Title),
		Status:     in.Status,
		Title:      in.Title,
		Content:    in.Content,
		Excerpt:    in.Excerpt,
		AuthorID:   requestUser(r).ID,
		Categories: in.Categories,
		Tags:       in.Tags,
		Date:       time.Now(),
	}
	if p.Status == "" {
		p.Status = "draft"
	}
	if len(p.Categories) == 0 {
		p.Categories = []int{1}
	}
	s.posts[p.ID] = p
	out := s.postJSON(p)
	s.mu.Unlock()

	respond(w, http.StatusCreated, out)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var in postInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		wpError(w, http.StatusBadRequest, "rest_invalid_json", "Invalid request body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		wpError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	if in.Title != "" {
		p.Title = in.Title
		p.Slug = slugify(in.Title)
	}
	if in.Content != "" {
		p.Content = in.Content
	}
	if in.Excerpt != "" {
		p.Excerpt = in.Excerpt
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.Categories != nil {
		p.Categories = in.Categories
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	respond(w, http.StatusOK, s.postJSON(p))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		wpError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	delete(s.posts, id)
	respond(w, http.StatusOK, map[string]any{"deleted": true})
}

func termJSON(t *stubTerm) map[string]any {
	return map[string]any{
		"id":    t.ID,
		"name":  t.Name,
		"slug":  slugify(t.Name),
		"count": t.Count,
	}
}

func (s *Server) handleListTerms(taxonomy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := strings.ToLower(r.URL.Query().Get("search"))

		s.mu.Lock()
		defer s.mu.Unlock()

		var terms []*stubTerm
		for _, t := range s.terms[taxonomy] {
			if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
				continue
			}
			terms = append(terms, t)
		}
		sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })

		out := make([]map[string]any, 0, len(terms))
		for _, t := range terms {
			out = append(out, termJSON(t))
		}
		respond(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateTerm(taxonomy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
			wpError(w, http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): name")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, t := range s.terms[taxonomy] {
			if strings.EqualFold(t.Name, in.Name) {
				wpError(w, http.StatusBadRequest, "term_exists", "A term with the name provided already exists.")
				return
			}
		}
		t := &stubTerm{ID: s.allocID(), Name: in.Name, Taxonomy: taxonomy}
		s.terms[taxonomy][t.ID] = t
		respond(w, http.StatusCreated, termJSON(t))
	}
}

// Callers must hold s.mu.
func (s *Server) commentJSON(c *stubComment) map[string]any {
	name := "Anonymous"
	avatars := map[string]string{}
	if u, ok := s.users[c.AuthorID]; ok {
		name = u.Name
		avatars["96"] = "https://avatars.example.test/" + u.Username + "?s=96"
	}
	return map[string]any{
		"id":                 c.ID,
		"post":               c.PostID,
		"parent":             c.ParentID,
		"author":             c.AuthorID,
		"author_name":        name,
		"author_avatar_urls": avatars,
		"content":            renderedJSON(c.Content),
		"date":               c.Date.Format("2006-01-02T15:04:05"),
	}
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID, _ := strconv.Atoi(r.URL.Query().Get("post"))

	s.mu.Lock()
	defer s.mu.Unlock()

	var comments []*stubComment
	for _, c := range s.comments {
		if postID != 0 && c.PostID != postID {
			continue
		}
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })

	out := make([]map[string]any, 0, len(comments))
	for _, c := range comments {
		out = append(out, s.commentJSON(c))
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Post    int    `json:"post"`
		Parent  int    `json:"parent"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Content == "" {
		wpError(w, http.StatusBadRequest, "rest_comment_content_invalid", "Invalid comment content.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[in.Post]; !ok {
		wpError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	c := &stubComment{
		ID:       s.allocID(),
		PostID:   in.Post,
		ParentID: in.Parent,
		AuthorID: requestUser(r).ID,
		Content:  in.Content,
		Date:     time.Now(),
	}
	s.comments[c.ID] = c
	respond(w, http.StatusCreated, s.commentJSON(c))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		wpError(w, http.StatusNotFound, "rest_comment_invalid_id", "Invalid comment ID.")
		return
	}
	delete(s.comments, id)
	respond(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	name := "upload"
	if cd := r.Header.Get("Content-Disposition"); cd != "" {
		if _, after, ok := strings.Cut(cd, `filename="`); ok {
			name = strings.TrimSuffix(after, `"`)
		}
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, 64<<20+1))
	if err != nil {
		wpError(w, http.StatusBadRequest, "rest_upload_failed", "Could not read upload.")
		return
	}
	if len(data) > 64<<20 {
		wpError(w, http.StatusRequestEntityTooLarge, "rest_upload_file_too_big",
			"The uploaded file exceeds the maximum upload size.")
		return
	}

	s.mu.Lock()
	m := &stubMedia{
		ID:       s.allocID(),
		Name:     name,
		MimeType: r.Header.Get("Content-Type"),
		Size:     len(data),
		Date:     time.Now(),
	}
	s.media[m.ID] = m
	s.mu.Unlock()

	respond(w, http.StatusCreated, map[string]any{
		"id":         m.ID,
		"source_url": fmt.Sprintf("https://media.example.test/%d/%s", m.ID, m.Name),
		"mime_type":  m.MimeType,
		"title":      map[string]string{"rendered": m.Name},
	})
}
