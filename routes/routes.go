package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hassan-nahid/school-of-music-server/controllers"
	"github.com/hassan-nahid/school-of-music-server/metrics"
	"github.com/hassan-nahid/school-of-music-server/middleware"
	"github.com/hassan-nahid/school-of-music-server/models"
)

// Controllers groups the handlers mounted by Register.
type Controllers struct {
	Auth    *controllers.AuthController
	Users   *controllers.UserController
	Classes *controllers.ClassController
	Carts   *controllers.CartController
	Payment *controllers.PaymentController
}

// Register mounts every route. auth is the bearer-token gate.
func Register(r *gin.Engine, c Controllers, auth gin.HandlerFunc) {
	r.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "summer camp starting...")
	})
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/jwt", c.Auth.IssueToken)

	registerUserRoutes(r, c.Users, auth)
	registerClassRoutes(r, c.Classes, auth)
	registerCartRoutes(r, c.Carts, auth)
	registerPaymentRoutes(r, c.Payment, auth)
}

func registerUserRoutes(r *gin.Engine, uc *controllers.UserController, auth gin.HandlerFunc) {
	r.GET("/instructor", uc.ListInstructors)
	r.POST("/users", uc.CreateUser)

	users := r.Group("/users", auth)
	users.GET("/admin/:email", uc.IsAdmin)
	users.GET("/instructor/:email", uc.IsInstructor)

	admin := users.Group("", middleware.AdminOnly())
	admin.GET("", uc.ListUsers)
	admin.PATCH("/admin/:id", uc.MakeAdmin)
	admin.PATCH("/instructor/:id", uc.MakeInstructor)
	admin.DELETE("/:id", uc.DeleteUser)
}

func registerClassRoutes(r *gin.Engine, cc *controllers.ClassController, auth gin.HandlerFunc) {
	r.GET("/reviews", cc.ListReviews)
	r.GET("/classes", cc.ListClasses)
	r.GET("/classes/approved", cc.ListApproved)

	classes := r.Group("/classes", auth)
	classes.GET("/instructor/:email", cc.ListByInstructor)
	classes.POST("", middleware.RequireRole(models.RoleInstructor, models.RoleAdmin), cc.SubmitClass)

	admin := classes.Group("", middleware.AdminOnly())
	admin.PATCH("/approved/:id", cc.Approve)
	admin.PATCH("/denied/:id", cc.Deny)
	admin.PATCH("/feedback/:id", cc.SetFeedback)
}

func registerCartRoutes(r *gin.Engine, cc *controllers.CartController, auth gin.HandlerFunc) {
	carts := r.Group("/carts", auth)
	carts.GET("", cc.ListItems)
	carts.POST("", cc.AddItem)
	carts.DELETE("/:id", cc.RemoveItem)
}

func registerPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, auth gin.HandlerFunc) {
	r.POST("/create-payment-intent", auth, pc.CreatePaymentIntent)
	r.POST("/payments", auth, pc.Settle)
	r.GET("/payment/:email", auth, pc.History)
}
