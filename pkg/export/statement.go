// Package export renders commission statements as Excel workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/Growthvoodoo/Capty-shopify/pkg/attribution"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/xuri/excelize/v2"
)

const (
	MonthlySheet = "Monthly"
	OrdersSheet  = "Orders"
)

var (
	monthlyHeaders = []string{"Month", "Orders", "Sales", "Commission", "Paid", "Paid At"}
	orderHeaders   = []string{
		"Reference", "Order ID", "Order Name", "User ID", "Total", "Currency",
		"Commission", "Rate", "Status", "Paid", "Created At",
	}
)

// CommissionStatement builds a workbook with the monthly ledger of a shop
// and its attributed orders.
func CommissionStatement(shop string, months []ledger.Monthly, orders []attribution.AttributedOrder) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", MonthlySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(OrdersSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeHeader(f, MonthlySheet, monthlyHeaders, headerStyle); err != nil {
		return nil, err
	}
	for i, m := range months {
		paidAt := ""
		if m.PaidAt != nil {
			paidAt = m.PaidAt.UTC().Format("2006-01-02")
		}
		row := []interface{}{m.Month, m.TotalOrders, m.TotalSales, m.TotalCommission, yesNo(m.IsPaid), paidAt}
		if err := writeRow(f, MonthlySheet, i+2, row); err != nil {
			return nil, err
		}
	}

	sum := ledger.Summarize(months)
	footer := len(months) + 3
	if err := writeRow(f, MonthlySheet, footer, []interface{}{"Shop", shop}); err != nil {
		return nil, err
	}
	if err := writeRow(f, MonthlySheet, footer+1, []interface{}{"Commission owed", sum.Owed}); err != nil {
		return nil, err
	}
	if err := writeRow(f, MonthlySheet, footer+2, []interface{}{"Commission paid", sum.Paid}); err != nil {
		return nil, err
	}

	if err := writeHeader(f, OrdersSheet, orderHeaders, headerStyle); err != nil {
		return nil, err
	}
	for i, o := range orders {
		row := []interface{}{
			o.Reference(), o.OrderID, o.OrderName, o.UserID, o.TotalPrice, o.CurrencyCode,
			o.CommissionAmount, o.CommissionRate, o.OrderStatus, yesNo(o.CommissionPaid),
			o.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, OrdersSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	f.SetColWidth(MonthlySheet, "A", "F", 16)
	f.SetColWidth(OrdersSheet, "A", "K", 18)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, style)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
