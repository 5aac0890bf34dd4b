package keywords

import (
	"github.com/gin-gonic/gin"

	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/models"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// ListKeywords returns all tracked keywords
// @Summary      List tracked keywords
// @Tags         keywords
// @Produce      json
// @Success      200 {object} types.KeywordsResponse
// @Router       /api/v1/keywords [get]
func ListKeywords(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		keywords, err := deps.KeywordService.ListKeywords(c.Request.Context())
		if err != nil {
			types.SendInternalError(c, "Failed to list keywords")
			return
		}
		c.JSON(200, types.KeywordsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Keywords:     keywords,
			Count:        len(keywords),
		})
	}
}

// CreateKeyword adds a keyword to track
// @Summary      Create a tracked keyword
// @Tags         keywords
// @Accept       json
// @Produce      json
// @Param        keyword body types.CreateKeywordRequest true "Keyword (phrase, match_type)"
// @Success      201 {object} models.Keyword
// @Failure      400 {object} types.ErrorResponse "Invalid phrase or match type"
// @Failure      409 {object} types.ErrorResponse "Phrase already tracked"
// @Router       /api/v1/keywords [post]
func CreateKeyword(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateKeywordRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		matchType := models.MatchType(req.MatchType)
		if req.MatchType == "" {
			matchType = models.MatchTypeContains
		}

		keyword, err := deps.KeywordService.CreateKeyword(c.Request.Context(), req.Phrase, matchType)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendCreated(c, keyword)
	}
}

// UpdateKeyword changes a keyword's phrase or match type
// @Summary      Update a tracked keyword
// @Tags         keywords
// @Accept       json
// @Produce      json
// @Param        id path string true "Keyword ID"
// @Param        keyword body types.UpdateKeywordRequest true "Fields to change"
// @Success      200 {object} models.Keyword
// @Failure      400 {object} types.ErrorResponse "Invalid phrase or match type"
// @Failure      404 {object} types.ErrorResponse "Keyword not found"
// @Router       /api/v1/keywords/{id} [put]
func UpdateKeyword(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.UpdateKeywordRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		var matchType *models.MatchType
		if req.MatchType != nil {
			mt := models.MatchType(*req.MatchType)
			matchType = &mt
		}

		keyword, err := deps.KeywordService.UpdateKeyword(c.Request.Context(), c.Param("id"), req.Phrase, matchType)
		if err != nil {
			types.SendError(c, err)
			return
		}
		c.JSON(200, keyword)
	}
}

// DeleteKeyword stops tracking a keyword and removes its mentions
// @Summary      Delete a tracked keyword
// @Tags         keywords
// @Produce      json
// @Param        id path string true "Keyword ID"
// @Success      200 {object} types.BaseResponse
// @Failure      404 {object} types.ErrorResponse "Keyword not found"
// @Router       /api/v1/keywords/{id} [delete]
func DeleteKeyword(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.KeywordService.DeleteKeyword(c.Request.Context(), c.Param("id")); err != nil {
			if apperrors.Is(err, apperrors.ErrCodeNotFound) {
				types.SendNotFound(c, "Keyword not found")
				return
			}
			types.SendInternalError(c, "Failed to delete keyword")
			return
		}
		c.JSON(200, types.BaseResponse{Status: types.StatusOK, Message: "Keyword removed"})
	}
}
