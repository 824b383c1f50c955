package handler

import (
	"net/http"

	"github.com/ctlabs-oss/authcore/internal/http/response"
	"github.com/ctlabs-oss/authcore/internal/service"
)

// AdminHandler exposes operator-only user, role and permission
// management. The router guards every route with the ROLE_ADMIN
// authority.
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUintParam(w, r, "user_id")
	if !ok {
		return
	}
	view, err := h.admin.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) ChangeUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUintParam(w, r, "user_id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin.ChangeUserStatus(r.Context(), userID, req.Status); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "User status updated."})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUintParam(w, r, "user_id")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "User archived."})
}

type roleRequest struct {
	Name string `json:"name"`
}

func (h *AdminHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := h.admin.CreateRole(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, role)
}

func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUintParam(w, r, "user_id")
	if !ok {
		return
	}
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin.AssignRole(r.Context(), userID, req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Role assigned."})
}

func (h *AdminHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUintParam(w, r, "user_id")
	if !ok {
		return
	}
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin.RemoveRole(r.Context(), userID, req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Role removed."})
}

type permissionRequest struct {
	Slug string `json:"slug"`
}

func (h *AdminHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	perm, err := h.admin.CreatePermission(r.Context(), req.Slug)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, perm)
}

type rolePermissionRequest struct {
	Role string `json:"role"`
	Slug string `json:"slug"`
}

func (h *AdminHandler) AssignPermission(w http.ResponseWriter, r *http.Request) {
	var req rolePermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin.AssignPermissionToRole(r.Context(), req.Role, req.Slug); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Permission assigned."})
}

func (h *AdminHandler) RemovePermission(w http.ResponseWriter, r *http.Request) {
	var req rolePermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin.RemovePermissionFromRole(r.Context(), req.Role, req.Slug); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Permission removed."})
}
