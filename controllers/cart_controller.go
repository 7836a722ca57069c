package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/services"
)

type CartController struct {
	carts services.CartService
}

func NewCartController(carts services.CartService) *CartController {
	return &CartController{carts: carts}
}

// ListItems handles GET /carts?email=.
func (cc *CartController) ListItems(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	items, svcErr := cc.carts.ListItems(ctx.Request.Context(), p, ctx.Query("email"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, items)
}

// AddItem handles POST /carts.
func (cc *CartController) AddItem(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var item models.CartItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		badRequest(ctx, err)
		return
	}

	id, svcErr := cc.carts.AddItem(ctx.Request.Context(), p, &item)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, models.InsertResult{InsertedID: id})
}

// RemoveItem handles DELETE /carts/:id.
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	res, svcErr := cc.carts.RemoveItem(ctx.Request.Context(), p, ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
