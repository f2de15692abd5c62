package api

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

// TicketsReportHandler выгружает все тикеты в Excel:
// GET /api/reports/tickets.xlsx
func (deps *ApiDependencies) TicketsReportHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := deps.Store.GetTicketsForExcel()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить данные для отчёта")
		return
	}
	defer rows.Close()

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Тикеты"
	index, _ := f.NewSheet(sheetName) // Игнорируем ошибку, если лист уже существует (NewFile создает Sheet1)
	f.DeleteSheet("Sheet1")           // Удаляем стандартный лист
	f.SetActiveSheet(index)

	headers := []string{"Код", "Клиент", "Username", "Тема", "Статус", "Создан", "Закрыт"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 2
	for rows.Next() {
		var ticketCode, fullName, subject, status string
		var username sql.NullString
		var createdAt time.Time
		var closedAt sql.NullTime
		if errScan := rows.Scan(&ticketCode, &fullName, &username, &subject, &status, &createdAt, &closedAt); errScan != nil {
			log.Printf("TicketsReportHandler: ошибка сканирования строки отчёта: %v", errScan)
			continue
		}

		values := []interface{}{
			ticketCode,
			fullName,
			username.String,
			subject,
			status,
			createdAt.Format("02.01.2006 15:04"),
			"",
		}
		if closedAt.Valid {
			values[6] = closedAt.Time.Format("02.01.2006 15:04")
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowIndex)
			f.SetCellValue(sheetName, cell, v)
		}
		rowIndex++
	}
	if err := rows.Err(); err != nil {
		log.Printf("TicketsReportHandler: ошибка чтения строк отчёта: %v", err)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tickets.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Printf("TicketsReportHandler: ошибка записи файла отчёта: %v", err)
	}
}
