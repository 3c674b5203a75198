package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"floorplan/internal/planner/document"
	"floorplan/internal/planner/graph"
	"floorplan/internal/planner/mapper"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/openings"
	"floorplan/internal/planner/repository"
	"floorplan/internal/planner/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Plan Handler
// ============================================================

type PlanHandler struct {
	registry *service.Registry
	repo     *repository.Repository
	storage  *service.FileStorage
	renderer *mapper.Renderer
}

func NewPlanHandler(registry *service.Registry, repo *repository.Repository, storage *service.FileStorage) *PlanHandler {
	return &PlanHandler{
		registry: registry,
		repo:     repo,
		storage:  storage,
		renderer: mapper.NewRenderer(),
	}
}

type createPlanRequest struct {
	Name string `json:"name"`
}

type planResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	document.Snapshot
}

type wallRequest struct {
	A           models.Point    `json:"a"`
	B           models.Point    `json:"b"`
	Thickness   float64         `json:"thickness"`
	Type        models.WallType `json:"wallType"`
	FloorID     string          `json:"floorId"`
	ArcControl1 *models.Point   `json:"arcControl1"`
	ArcControl2 *models.Point   `json:"arcControl2"`
}

func (r wallRequest) options() graph.WallOptions {
	opts := graph.WallOptions{
		Thickness:   r.Thickness,
		Type:        r.Type,
		FloorID:     r.FloorID,
		IsArc:       r.ArcControl1 != nil && r.ArcControl2 != nil,
		ArcControl1: r.ArcControl1,
		ArcControl2: r.ArcControl2,
	}
	if opts.Thickness <= 0 {
		opts.Thickness = models.DefaultThickness
	}
	if opts.Type == "" {
		opts.Type = models.WallNormal
	}
	return opts
}

type thicknessRequest struct {
	Thickness float64 `json:"thickness"`
}

type openingRequest struct {
	Kind    models.OpeningKind `json:"kind"`
	X       float64            `json:"x"`
	Y       float64            `json:"y"`
	FloorID string             `json:"floorId"`
	WallID  models.WallID      `json:"wallId"`
}

type widthRequest struct {
	Width float64 `json:"width"`
}

type dragBeginRequest struct {
	OpeningID models.OpeningID `json:"openingId"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// ============================================================
// Plans
// ============================================================

// CreatePlan открывает новый пустой план.
func (h *PlanHandler) CreatePlan(c fiber.Ctx) error {
	var req createPlanRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	id := h.registry.Create(req.Name)
	log.Printf("[PLANNER] plan %s created", id)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id, "name": req.Name})
}

func (h *PlanHandler) ListPlans(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": h.registry.IDs()})
}

// GetPlan отдает полный снимок плана.
func (h *PlanHandler) GetPlan(c fiber.Ctx) error {
	id := c.Params("id")
	return h.withPlan(c, func(name string, doc *document.Document) error {
		return c.JSON(planResponse{ID: id, Name: name, Snapshot: doc.Snapshot()})
	})
}

func (h *PlanHandler) DeletePlan(c fiber.Ctx) error {
	if !h.registry.Delete(c.Params("id")) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "plan not found"})
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Walls & nodes
// ============================================================

func (h *PlanHandler) AddWall(c fiber.Ctx) error {
	var req wallRequest
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		id, err := doc.AddWall(req.A, req.B, req.options())
		if err != nil {
			return respondError(c, err)
		}
		wall, _ := doc.Wall(id)
		return c.Status(http.StatusCreated).JSON(wall)
	})
}

func (h *PlanHandler) RemoveWall(c fiber.Ctx) error {
	wallID, err := paramInt(c, "wallId")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid wall id"})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		removed, err := doc.RemoveWall(models.WallID(wallID))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"removedOpenings": idsOrEmpty(removed)})
	})
}

func (h *PlanHandler) SetWallThickness(c fiber.Ctx) error {
	wallID, err := paramInt(c, "wallId")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid wall id"})
	}
	var req thicknessRequest
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		removed, err := doc.SetWallThickness(models.WallID(wallID), req.Thickness)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"removedOpenings": idsOrEmpty(removed)})
	})
}

// FreeSegments отдает свободные участки стены для нового проема.
func (h *PlanHandler) FreeSegments(c fiber.Ctx) error {
	wallID, err := paramInt(c, "wallId")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid wall id"})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if _, ok := doc.Wall(models.WallID(wallID)); !ok {
			return respondError(c, graph.ErrWallNotFound)
		}
		segments := doc.FreeSegments(models.WallID(wallID))
		if segments == nil {
			segments = []models.Interval{}
		}
		return c.JSON(fiber.Map{"segments": segments})
	})
}

func (h *PlanHandler) MoveNode(c fiber.Ctx) error {
	nodeID, err := paramInt(c, "nodeId")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid node id"})
	}
	var req models.Point
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		removed, err := doc.MoveNode(models.NodeID(nodeID), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"removedOpenings": idsOrEmpty(removed)})
	})
}

// ============================================================
// Openings
// ============================================================

// PlaceOpening ставит дверь, окно или вентиляцию у точки. Нет места: 409.
func (h *PlanHandler) PlaceOpening(c fiber.Ctx) error {
	var req openingRequest
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	switch req.Kind {
	case models.KindDoor, models.KindWindow, models.KindVent:
	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unknown opening kind"})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		p := models.Point{X: req.X, Y: req.Y}
		var o models.Opening
		var ok bool
		if req.WallID != 0 {
			if _, exists := doc.Wall(req.WallID); !exists {
				return respondError(c, graph.ErrWallNotFound)
			}
			o, ok = doc.PlaceOpeningOnWall(req.Kind, req.WallID, p)
		} else {
			o, ok = doc.PlaceOpening(req.Kind, p, req.FloorID)
		}
		if !ok {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"placed": false})
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"placed": true, "opening": o})
	})
}

func (h *PlanHandler) ResizeOpening(c fiber.Ctx) error {
	openingID, err := paramInt(c, "openingId")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid opening id"})
	}
	var req widthRequest
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		ok, err := doc.ResizeOpening(models.OpeningID(openingID), req.Width)
		if err != nil {
			return respondError(c, err)
		}
		if !ok {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"resized": false})
		}
		o, _ := doc.Opening(models.OpeningID(openingID))
		return c.JSON(fiber.Map{"resized": true, "opening": o})
	})
}

func (h *PlanHandler) DeleteOpening(c fiber.Ctx) error {
	openingID, err := paramInt(c, "openingId")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid opening id"})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if err := doc.DeleteOpening(models.OpeningID(openingID)); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(http.StatusNoContent)
	})
}

// ============================================================
// Drag
// ============================================================

func (h *PlanHandler) BeginDrag(c fiber.Ctx) error {
	var req dragBeginRequest
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if err := doc.BeginDrag(req.OpeningID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"dragging": req.OpeningID})
	})
}

// MoveDrag пересчитывает положение перетаскиваемого проема по курсору.
func (h *PlanHandler) MoveDrag(c fiber.Ctx) error {
	var req models.Point
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if _, dragging := doc.Dragging(); !dragging {
			return respondError(c, openings.ErrNotDragging)
		}
		return c.JSON(doc.DragTo(req))
	})
}

func (h *PlanHandler) EndDrag(c fiber.Ctx) error {
	return h.withPlan(c, func(_ string, doc *document.Document) error {
		id, _ := doc.Dragging()
		committed, err := doc.EndDrag()
		if err != nil {
			return respondError(c, err)
		}
		o, _ := doc.Opening(id)
		return c.JSON(fiber.Map{"committed": committed, "opening": o})
	})
}

func (h *PlanHandler) CancelDrag(c fiber.Ctx) error {
	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if err := doc.CancelDrag(); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(http.StatusNoContent)
	})
}

// ============================================================
// Rooms
// ============================================================

func (h *PlanHandler) GetRooms(c fiber.Ctx) error {
	return h.withPlan(c, func(_ string, doc *document.Document) error {
		return c.JSON(fiber.Map{"rooms": doc.Rooms(floorsQuery(c)...)})
	})
}

func (h *PlanHandler) RenameRoom(c fiber.Ctx) error {
	var req nameRequest
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	roomID := c.Params("roomId")

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if err := doc.RenameRoom(roomID, req.Name); err != nil {
			return respondError(c, err)
		}
		room, _ := doc.Room(roomID)
		return c.JSON(room)
	})
}

func (h *PlanHandler) MoveRoomLabel(c fiber.Ctx) error {
	var req models.Point
	if err := decodeBody(c, &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	roomID := c.Params("roomId")

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		if err := doc.MoveRoomLabel(roomID, req); err != nil {
			return respondError(c, err)
		}
		room, _ := doc.Room(roomID)
		return c.JSON(room)
	})
}

// AutoPlaceWindows ставит окна на внешние стены комнаты.
func (h *PlanHandler) AutoPlaceWindows(c fiber.Ctx) error {
	roomID := c.Params("roomId")

	return h.withPlan(c, func(_ string, doc *document.Document) error {
		placed, err := doc.AutoPlaceWindows(roomID)
		if err != nil {
			return respondError(c, err)
		}
		if placed == nil {
			placed = []models.Opening{}
		}
		return c.JSON(fiber.Map{"placed": placed})
	})
}

// ============================================================
// Import & render
// ============================================================

// ImportSVG переносит стены, проемы и подписи комнат из SVG в план.
func (h *PlanHandler) ImportSVG(c fiber.Ctx) error {
	planID := c.Params("id")

	file, err := c.FormFile("file")
	if err != nil {
		log.Printf("[IMPORT] FormFile error: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "file required in multipart/form-data",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}
	floorID := c.FormValue("floorId")

	log.Printf("[IMPORT] plan %s: %s, %d bytes", planID, file.Filename, len(data))
	return h.withPlan(c, func(_ string, doc *document.Document) error {
		report, err := mapper.NewImporter(doc, floorID).Import(bytes.NewReader(data))
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if h.storage != nil {
			if err := h.storage.WriteSource(planID, data); err != nil {
				log.Printf("[IMPORT] store source of %s: %v", planID, err)
			}
		}
		return c.JSON(report)
	})
}

// GetSource отдает последний импортированный SVG плана.
func (h *PlanHandler) GetSource(c fiber.Ctx) error {
	if h.storage == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "file storage disabled"})
	}
	data, err := h.storage.ReadSource(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "source not found"})
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.Send(data)
}

func (h *PlanHandler) RenderSVG(c fiber.Ctx) error {
	return h.withPlan(c, func(_ string, doc *document.Document) error {
		svg, err := h.renderer.Render(doc, floorsQuery(c)...)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set("Content-Type", "image/svg+xml")
		return c.SendString(svg)
	})
}

// ============================================================
// Persistence
// ============================================================

// SavePlan сохраняет снимок плана в sqlite и рендер на диск.
func (h *PlanHandler) SavePlan(c fiber.Ctx) error {
	planID := c.Params("id")

	return h.withPlan(c, func(name string, doc *document.Document) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		plan := repository.Plan{
			ID:       planID,
			Name:     name,
			Snapshot: data,
			Walls:    len(doc.Walls()),
			Rooms:    len(doc.Rooms()),
		}
		if err := h.repo.Save(context.Background(), plan); err != nil {
			log.Printf("[REPO] %v", err)
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save plan"})
		}

		if h.storage != nil {
			if svg, err := h.renderer.Render(doc); err == nil {
				if err := h.storage.WriteRender(planID, []byte(svg)); err != nil {
					log.Printf("[REPO] store render of %s: %v", planID, err)
				}
			}
		}

		log.Printf("[REPO] plan %s saved: walls=%d rooms=%d", planID, plan.Walls, plan.Rooms)
		return c.JSON(plan)
	})
}

// LoadPlan открывает сохраненный план под его ID, заменяя открытый.
func (h *PlanHandler) LoadPlan(c fiber.Ctx) error {
	planID := c.Params("id")

	plan, err := h.repo.GetByID(context.Background(), planID)
	if err != nil {
		return respondError(c, err)
	}

	doc := h.registry.NewDocument()
	if err := doc.Load(plan.Snapshot); err != nil {
		log.Printf("[REPO] load plan %s: %v", planID, err)
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	h.registry.Put(planID, plan.Name, doc)

	return c.JSON(planResponse{ID: planID, Name: plan.Name, Snapshot: doc.Snapshot()})
}

func (h *PlanHandler) ListSaved(c fiber.Ctx) error {
	plans, err := h.repo.List(context.Background())
	if err != nil {
		log.Printf("[REPO] list: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list plans"})
	}
	return c.JSON(fiber.Map{"plans": plans})
}

func (h *PlanHandler) DeleteSaved(c fiber.Ctx) error {
	if err := h.repo.Delete(context.Background(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Helpers
// ============================================================

func (h *PlanHandler) withPlan(c fiber.Ctx, fn func(name string, doc *document.Document) error) error {
	err := h.registry.With(c.Params("id"), fn)
	if errors.Is(err, service.ErrPlanNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "plan not found"})
	}
	return err
}

func decodeBody(c fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return errors.New("invalid json")
	}
	return nil
}

func paramInt(c fiber.Ctx, name string) (int, error) {
	return strconv.Atoi(c.Params(name))
}

func floorsQuery(c fiber.Ctx) []string {
	if floor := c.Query("floor"); floor != "" {
		return []string{floor}
	}
	return nil
}

func idsOrEmpty(ids []models.OpeningID) []models.OpeningID {
	if ids == nil {
		return []models.OpeningID{}
	}
	return ids
}

// respondError переводит доменные ошибки в HTTP-статусы.
func respondError(c fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, graph.ErrWallNotFound),
		errors.Is(err, openings.ErrNotFound),
		errors.Is(err, document.ErrRoomNotFound),
		errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, graph.ErrWallExists),
		errors.Is(err, openings.ErrDragActive),
		errors.Is(err, openings.ErrNotDragging):
		status = http.StatusConflict
	case errors.Is(err, graph.ErrDegenerateWall),
		errors.Is(err, graph.ErrArcWall),
		errors.Is(err, document.ErrLabelOutside),
		errors.Is(err, document.ErrEmptyName):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("[PLANNER] %v", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// Register вешает маршруты планировщика на роутер.
func (h *PlanHandler) Register(r fiber.Router) {
	r.Post("/plans", h.CreatePlan)
	r.Get("/plans", h.ListPlans)
	r.Get("/plans/:id", h.GetPlan)
	r.Delete("/plans/:id", h.DeletePlan)

	r.Post("/plans/:id/walls", h.AddWall)
	r.Delete("/plans/:id/walls/:wallId", h.RemoveWall)
	r.Put("/plans/:id/walls/:wallId/thickness", h.SetWallThickness)
	r.Get("/plans/:id/walls/:wallId/segments", h.FreeSegments)
	r.Put("/plans/:id/nodes/:nodeId", h.MoveNode)

	r.Post("/plans/:id/openings", h.PlaceOpening)
	r.Put("/plans/:id/openings/:openingId/width", h.ResizeOpening)
	r.Delete("/plans/:id/openings/:openingId", h.DeleteOpening)

	r.Post("/plans/:id/drag/begin", h.BeginDrag)
	r.Post("/plans/:id/drag/move", h.MoveDrag)
	r.Post("/plans/:id/drag/end", h.EndDrag)
	r.Post("/plans/:id/drag/cancel", h.CancelDrag)

	r.Get("/plans/:id/rooms", h.GetRooms)
	r.Put("/plans/:id/rooms/:roomId/name", h.RenameRoom)
	r.Put("/plans/:id/rooms/:roomId/label", h.MoveRoomLabel)
	r.Post("/plans/:id/rooms/:roomId/windows", h.AutoPlaceWindows)

	r.Post("/plans/:id/import", h.ImportSVG)
	r.Get("/plans/:id/source", h.GetSource)
	r.Get("/plans/:id/svg", h.RenderSVG)

	r.Post("/plans/:id/save", h.SavePlan)
	r.Post("/plans/:id/load", h.LoadPlan)
	r.Get("/saved", h.ListSaved)
	r.Delete("/saved/:id", h.DeleteSaved)
}
