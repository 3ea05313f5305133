package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/logger"
)

const (
	IndexRoutes = "routes"
	IndexUsers  = "users"

	signerKeyName = "TenantTokenSigner"
)

// MeiliSearchService keeps the routes and users indexes in sync and signs
// tenant tokens so clients can search Meilisearch directly.
type MeiliSearchService interface {
	IndexRoute(route *entity.Route) error
	DeleteRoute(id uuid.UUID) error
	IndexUser(user *entity.User) error
	GenerateSearchToken(userID uuid.UUID) (string, error)
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{Limit: 20})
	if err != nil {
		logger.L().Warn("meilisearch list keys failed", zap.Error(err))
		return
	}

	for _, key := range resp.Results {
		if key.Name == signerKeyName {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign tenant tokens",
		Name:        signerKeyName,
		Actions:     []string{"search"},
		Indexes:     []string{IndexRoutes, IndexUsers},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		logger.L().Warn("meilisearch create signing key failed", zap.Error(err))
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	logger.L().Info("meilisearch signing key created")
}

func (s *meiliSearchService) initIndexes() {
	routeFilterable := toAny([]string{"isPublic", "creatorId", "difficulty", "terrain", "surfaceType", "distance"})
	if _, err := s.client.Index(IndexRoutes).UpdateFilterableAttributes(&routeFilterable); err != nil {
		logger.L().Warn("meilisearch routes filterable update failed", zap.Error(err))
	}
	routeSortable := []string{"distance", "usageCount", "averageRating", "createdAt"}
	if _, err := s.client.Index(IndexRoutes).UpdateSortableAttributes(&routeSortable); err != nil {
		logger.L().Warn("meilisearch routes sortable update failed", zap.Error(err))
	}

	userSearchable := []string{"firstName", "lastName", "location"}
	if _, err := s.client.Index(IndexUsers).UpdateSearchableAttributes(&userSearchable); err != nil {
		logger.L().Warn("meilisearch users searchable update failed", zap.Error(err))
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

type routeDoc struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Distance      float64  `json:"distance"`
	Difficulty    string   `json:"difficulty"`
	Terrain       string   `json:"terrain"`
	SurfaceType   string   `json:"surfaceType"`
	Tags          []string `json:"tags"`
	IsPublic      bool     `json:"isPublic"`
	CreatorID     string   `json:"creatorId"`
	StartName     string   `json:"startName"`
	UsageCount    int64    `json:"usageCount"`
	AverageRating float64  `json:"averageRating"`
	CreatedAt     int64    `json:"createdAt"`
}

type userDoc struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Location       string `json:"location"`
	ProfilePicture string `json:"profilePicture"`
}

// cleanText strips markup and collapses whitespace.
func (s *meiliSearchService) cleanText(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	clean := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(clean), " ")
}

func (s *meiliSearchService) newRouteDoc(route *entity.Route) routeDoc {
	tags := route.Tags
	if tags == nil {
		tags = []string{}
	}
	return routeDoc{
		ID:            route.ID.String(),
		Name:          s.cleanText(route.Name),
		Description:   s.cleanText(route.Description),
		Distance:      route.Distance,
		Difficulty:    route.Difficulty,
		Terrain:       route.Terrain,
		SurfaceType:   route.SurfaceType,
		Tags:          tags,
		IsPublic:      route.IsPublic,
		CreatorID:     route.CreatorID.String(),
		StartName:     s.cleanText(route.StartLocation.Name),
		UsageCount:    route.UsageCount,
		AverageRating: route.AverageRating,
		CreatedAt:     route.CreatedAt.Unix(),
	}
}

func (s *meiliSearchService) newUserDoc(user *entity.User) userDoc {
	doc := userDoc{
		ID:        user.ID.String(),
		FirstName: s.cleanText(user.FirstName),
		LastName:  s.cleanText(user.LastName),
		Location:  s.cleanText(user.Location),
	}
	if user.ProfilePicture != nil {
		doc.ProfilePicture = *user.ProfilePicture
	}
	return doc
}

func (s *meiliSearchService) IndexRoute(route *entity.Route) error {
	task, err := s.client.Index(IndexRoutes).AddDocuments([]routeDoc{s.newRouteDoc(route)}, strPtr("id"))
	if err != nil {
		return err
	}
	logger.L().Debug("route indexed", zap.String("route_id", route.ID.String()), zap.Int64("task_uid", task.TaskUID))
	return nil
}

func (s *meiliSearchService) DeleteRoute(id uuid.UUID) error {
	_, err := s.client.Index(IndexRoutes).DeleteDocument(id.String())
	return err
}

func (s *meiliSearchService) IndexUser(user *entity.User) error {
	task, err := s.client.Index(IndexUsers).AddDocuments([]userDoc{s.newUserDoc(user)}, strPtr("id"))
	if err != nil {
		return err
	}
	logger.L().Debug("user indexed", zap.String("user_id", user.ID.String()), zap.Int64("task_uid", task.TaskUID))
	return nil
}

// searchRules limits a tenant to public routes and its own private ones.
func searchRules(userID uuid.UUID) map[string]any {
	return map[string]any{
		IndexRoutes: map[string]any{
			"filter": fmt.Sprintf("isPublic = true OR creatorId = '%s'", userID.String()),
		},
		IndexUsers: map[string]any{},
	}
}

func (s *meiliSearchService) GenerateSearchToken(userID uuid.UUID) (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, searchRules(userID), &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

func strPtr(s string) *string {
	return &s
}
