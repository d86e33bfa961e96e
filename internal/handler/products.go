package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

// maxImageBytes caps multipart product image uploads.
const maxImageBytes = 8 << 20

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductsHandler) Update(c *gin.Context) {
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductsHandler) TopProfitable(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, apierror.New("limit inválido"))
			return
		}
		limit = n
	}
	products, err := h.svc.TopProfitable(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{Data: products, Total: len(products)})
}

// UploadImage accepts a multipart "image" field.
func (h *ProductsHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Campo 'image' obrigatório"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Arquivo ilegível"))
		return
	}
	defer f.Close()

	p, err := h.svc.UploadImage(c.Request.Context(), c.Param("id"), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
