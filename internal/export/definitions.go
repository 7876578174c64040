package export

import (
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sqlq"
)

// Built-in export type ids.
const (
	TypeRegiones      = "regiones"
	TypeMarcas        = "marcas"
	TypeProductos     = "productos"
	TypeTiendas       = "tiendas"
	TypePrecios       = "precios"
	TypeCheckins      = "checkins"
	TypeObservaciones = "observaciones"
)

// DefaultRegistry holds the built-in export types for dialect d.
func DefaultRegistry(d sqlq.Dialect) *Registry {
	return MustRegistry(Definitions(d)...)
}

// Definitions returns fresh copies of the built-in export types.
func Definitions(d sqlq.Dialect) []*Definition {
	return []*Definition{
		{
			ID:           TypeRegiones,
			FilenameStem: "regiones",
			SheetName:    "Regiones",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 8},
				{Header: "Nombre", Key: "nombre", Width: 30},
				{Header: "Código", Key: "codigo", Width: 12},
				{Header: "Activo", Key: "activo", Width: 10},
			},
			Filters: []FilterSpec{
				Substring("q", "r.nombre", "r.codigo"),
				Bool("active", "r.activo"),
			},
			Select:   "SELECT r.id AS id, r.nombre AS nombre, r.codigo AS codigo, r.activo AS activo FROM regiones r",
			Baseline: []string{"r.deleted_at IS NULL"},
			OrderBy:  "r.nombre, r.id",
			Dialect:  d,
		},
		{
			ID:           TypeMarcas,
			FilenameStem: "marcas",
			SheetName:    "Marcas",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 8},
				{Header: "Marca", Key: "nombre", Width: 30},
				{Header: "Activo", Key: "activo", Width: 10},
			},
			Filters: []FilterSpec{
				Substring("q", "m.nombre"),
				Bool("active", "m.activo"),
			},
			Select:   "SELECT m.id AS id, m.nombre AS nombre, m.activo AS activo FROM marcas m",
			Baseline: []string{"m.deleted_at IS NULL"},
			OrderBy:  "m.nombre, m.id",
			Dialect:  d,
		},
		{
			ID:           TypeProductos,
			FilenameStem: "productos",
			SheetName:    "Productos",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 8},
				{Header: "Producto", Key: "nombre", Width: 40},
				{Header: "SKU", Key: "sku", Width: 16},
				{Header: "Marca", Key: "marca", Width: 24},
				{Header: "Grupo", Key: "grupo", Width: 24},
				{Header: "Activo", Key: "activo", Width: 10},
			},
			Filters: []FilterSpec{
				Substring("q", "p.nombre", "p.sku"),
				Int("brand", "p.marca_id"),
				Int("group", "p.grupo_id"),
				Bool("active", "p.activo"),
			},
			Select: "SELECT p.id AS id, p.nombre AS nombre, p.sku AS sku, m.nombre AS marca, g.nombre AS grupo, p.activo AS activo" +
				" FROM productos p" +
				" LEFT JOIN marcas m ON m.id = p.marca_id" +
				" LEFT JOIN grupos g ON g.id = p.grupo_id",
			Baseline: []string{"p.deleted_at IS NULL"},
			OrderBy:  "p.nombre, p.id",
			Dialect:  d,
		},
		{
			ID:           TypeTiendas,
			FilenameStem: "tiendas",
			SheetName:    "Tiendas",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 8},
				{Header: "Tienda", Key: "nombre", Width: 30},
				{Header: "Dirección", Key: "direccion", Width: 40},
				{Header: "Cadena", Key: "cadena", Width: 20},
				{Header: "Región", Key: "region", Width: 20},
				{Header: "Activo", Key: "activo", Width: 10},
			},
			Filters: []FilterSpec{
				Substring("q", "t.nombre", "t.direccion"),
				Int("region", "t.region_id"),
				Equals("chain", "t.cadena"),
				Bool("active", "t.activo"),
			},
			Select: "SELECT t.id AS id, t.nombre AS nombre, t.direccion AS direccion, t.cadena AS cadena, r.nombre AS region, t.activo AS activo" +
				" FROM tiendas t" +
				" LEFT JOIN regiones r ON r.id = t.region_id",
			Baseline: []string{"t.deleted_at IS NULL"},
			OrderBy:  "t.nombre, t.id",
			Dialect:  d,
		},
		{
			ID:           TypePrecios,
			FilenameStem: "precios",
			SheetName:    "Precios",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 10},
				{Header: "Fecha", Key: "fecha", Width: 20},
				{Header: "Región", Key: "region", Width: 20},
				{Header: "Tienda", Key: "tienda", Width: 30},
				{Header: "Cadena", Key: "cadena", Width: 20},
				{Header: "Producto", Key: "producto", Width: 40},
				{Header: "SKU", Key: "sku", Width: 16},
				{Header: "Marca", Key: "marca", Width: 24},
				{Header: "Precio", Key: "precio", Width: 12},
			},
			Filters: []FilterSpec{
				Int("region", "t.region_id"),
				Int("store", "pr.tienda_id"),
				Int("product", "pr.producto_id"),
				Int("brand", "p.marca_id"),
				From("from", "pr.capturado_en"),
				To("to", "pr.capturado_en"),
			},
			Select: "SELECT pr.id AS id, pr.capturado_en AS fecha, r.nombre AS region, t.nombre AS tienda, t.cadena AS cadena," +
				" p.nombre AS producto, p.sku AS sku, m.nombre AS marca, pr.precio AS precio" +
				" FROM precios pr" +
				" JOIN tiendas t ON t.id = pr.tienda_id" +
				" LEFT JOIN regiones r ON r.id = t.region_id" +
				" JOIN productos p ON p.id = pr.producto_id" +
				" LEFT JOIN marcas m ON m.id = p.marca_id",
			Baseline: []string{"pr.deleted_at IS NULL"},
			OrderBy:  "pr.capturado_en, pr.id",
			Dialect:  d,
		},
		{
			ID:           TypeCheckins,
			FilenameStem: "checkins",
			SheetName:    "Check-ins",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 10},
				{Header: "Fecha", Key: "fecha", Width: 20},
				{Header: "Usuario", Key: "usuario", Width: 24},
				{Header: "Tienda", Key: "tienda", Width: 30},
				{Header: "Región", Key: "region", Width: 20},
			},
			Filters: []FilterSpec{
				Int("region", "t.region_id"),
				Int("store", "c.tienda_id"),
				Equals("user", "c.usuario"),
				From("from", "c.creado_en"),
				To("to", "c.creado_en"),
			},
			Select: "SELECT c.id AS id, c.creado_en AS fecha, c.usuario AS usuario, t.nombre AS tienda, r.nombre AS region" +
				" FROM checkins c" +
				" JOIN tiendas t ON t.id = c.tienda_id" +
				" LEFT JOIN regiones r ON r.id = t.region_id",
			OrderBy: "c.creado_en, c.id",
			Dialect: d,
		},
		{
			ID:           TypeObservaciones,
			FilenameStem: "observaciones",
			SheetName:    "Observaciones",
			Columns: []model.Column{
				{Header: "ID", Key: "id", Width: 10},
				{Header: "Fecha", Key: "fecha", Width: 20},
				{Header: "Tipo", Key: "tipo", Width: 16},
				{Header: "Comentario", Key: "comentario", Width: 60},
				{Header: "Tienda", Key: "tienda", Width: 30},
				{Header: "Región", Key: "region", Width: 20},
				{Header: "Producto", Key: "producto", Width: 40},
			},
			Filters: []FilterSpec{
				Substring("q", "o.comentario"),
				Equals("kind", "o.tipo"),
				Int("region", "t.region_id"),
				Int("store", "o.tienda_id"),
				From("from", "o.creado_en"),
				To("to", "o.creado_en"),
			},
			Select: "SELECT o.id AS id, o.creado_en AS fecha, o.tipo AS tipo, o.comentario AS comentario," +
				" t.nombre AS tienda, r.nombre AS region, p.nombre AS producto" +
				" FROM observaciones o" +
				" JOIN tiendas t ON t.id = o.tienda_id" +
				" LEFT JOIN regiones r ON r.id = t.region_id" +
				" LEFT JOIN productos p ON p.id = o.producto_id",
			Baseline: []string{"o.deleted_at IS NULL"},
			OrderBy:  "o.creado_en, o.id",
			Dialect:  d,
		},
	}
}
