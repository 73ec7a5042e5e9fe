package router

import (
	"net/http"

	"github.com/deppfellow/iban-manager/internal/handler"
	"github.com/labstack/echo/v4"
)

func registerIBANRoutes(api *echo.Group, h *handler.Handlers) {
	ibans := api.Group("/ibans")

	ibans.GET("", handler.Handle(h.IBAN.ListIBANs, http.StatusOK, ""))
	ibans.POST("", handler.Handle(h.IBAN.CreateIBAN, http.StatusCreated, "IBAN added successfully"))

	// Static segment, matched before /:id.
	ibans.POST("/validate", handler.Handle(h.IBAN.ValidateIBAN, http.StatusOK, ""))

	ibans.GET("/:id", handler.Handle(h.IBAN.GetIBAN, http.StatusOK, ""))
	ibans.PUT("/:id", handler.Handle(h.IBAN.UpdateIBAN, http.StatusOK, "IBAN updated successfully"))
	ibans.DELETE("/:id", handler.HandleNoContent(h.IBAN.DeleteIBAN, http.StatusOK, "IBAN deleted successfully"))
}
