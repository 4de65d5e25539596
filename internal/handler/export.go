package handler

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/resto-order/api/internal/service"
	"github.com/tealeg/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export handles GET /order/export?status=. It streams a workbook with an
// Orders sheet and an Items sheet.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	details, err := h.state.ExportOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, "export orders", err)
		return
	}

	// Build in memory so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := buildOrderWorkbook(details).Write(&buf); err != nil {
		log.Printf("ERROR: write order workbook: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Transfer-Encoding", "binary")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("WARN: send order workbook: %v", err)
	}
}

var (
	orderSheetHeaders = []string{
		"Order ID", "Created At", "Status", "Source", "Delivery Type", "Branch",
		"Customer Name", "Customer Phone", "Location", "Rider ID", "Total",
	}
	itemSheetHeaders = []string{
		"Order ID", "Product", "Quantity", "Unit Price", "Subtotal", "Instructions",
	}
)

func buildOrderWorkbook(details []service.OrderDetail) *xlsx.File {
	file := xlsx.NewFile()
	orders, _ := file.AddSheet("Orders")
	items, _ := file.AddSheet("Items")

	addHeaderRow(orders, orderSheetHeaders)
	addHeaderRow(items, itemSheetHeaders)

	for _, d := range details {
		o := toOrderResponse(d.Order, d.BranchName, d.Items)

		row := orders.AddRow()
		row.AddCell().SetValue(o.ID.String())
		row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(o.Status)
		row.AddCell().SetValue(o.Source)
		row.AddCell().SetValue(o.DeliveryType)
		row.AddCell().SetValue(d.BranchName)
		row.AddCell().SetValue(o.CustomerName)
		row.AddCell().SetValue(o.CustomerPhone)
		row.AddCell().SetValue(o.Location)
		if o.RiderID != nil {
			row.AddCell().SetValue(o.RiderID.String())
		} else {
			row.AddCell().SetValue("")
		}
		row.AddCell().SetValue(o.TotalAmount)

		for _, it := range o.Items {
			line := items.AddRow()
			line.AddCell().SetValue(o.ID.String())
			line.AddCell().SetValue(it.ProductName)
			line.AddCell().SetValue(int(it.Quantity))
			line.AddCell().SetValue(it.UnitPrice)
			line.AddCell().SetValue(it.Subtotal)
			if it.Instructions != nil {
				line.AddCell().SetValue(*it.Instructions)
			} else {
				line.AddCell().SetValue("")
			}
		}
	}
	return file
}

func addHeaderRow(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetValue(h)
	}
}
