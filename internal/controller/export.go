package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

const (
	timeLayout  = "2006-01-02 15:04:05"
	moneyFormat = "0.00"
)

// ExportProducts writes the catalog as an xlsx workbook to w.
func (a *Admin) ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := a.Products(ctx)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	addHeader(sheet, "ID", "Name", "Category", "Price", "Stock", "Description", "Image")
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetFloatWithFormat(p.Price.InexactFloat64(), moneyFormat)
		row.AddCell().SetValue(p.StockAvailable)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetValue(p.Image)
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportOrders writes every order as an xlsx workbook to w.
func (a *Admin) ExportOrders(ctx context.Context, w io.Writer) error {
	orders, err := a.Orders(ctx, "")
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	addHeader(sheet, "Order", "ID", "Customer", "Email", "Items", "Total",
		"Payment", "Status", "Ordered", "Delivery", "Shipping Address", "Cancelled")
	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.ShortRef())
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(o.User.Username)
		row.AddCell().SetValue(o.User.Email)
		row.AddCell().SetValue(orderLines(o.Lines))
		row.AddCell().SetFloatWithFormat(o.TotalAmount.InexactFloat64(), moneyFormat)
		row.AddCell().SetValue(string(o.PaymentMode))
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(o.OrderDate.Format(timeLayout))
		delivery := ""
		if o.DeliveryDate != nil {
			delivery = o.DeliveryDate.Format(timeLayout)
		}
		row.AddCell().SetValue(delivery)
		row.AddCell().SetValue(o.ShippingAddress)
		row.AddCell().SetValue(o.IsCancelled)
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, headers ...string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetValue(h)
	}
}

func orderLines(lines []entity.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", l.Product.Name, l.Quantity))
	}
	return strings.Join(parts, ", ")
}
