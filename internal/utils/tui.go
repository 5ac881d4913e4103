package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Gruvbox-inspired palette, only used within this file
var (
	gruvboxFgDark  = text.Colors{text.FgHiBlack}
	gruvboxFgLight = text.Colors{text.FgWhite}
	gruvboxRed     = text.Colors{text.FgRed}
	gruvboxGreen   = text.Colors{text.FgGreen}
	gruvboxYellow  = text.Colors{text.FgYellow}
	gruvboxBlue    = text.Colors{text.FgBlue}
	gruvboxAqua    = text.Colors{text.FgCyan}

	gruvboxGreenBright  = text.Colors{text.FgHiGreen}
	gruvboxYellowBright = text.Colors{text.FgHiYellow}
	gruvboxBlueBright   = text.Colors{text.FgHiBlue}
	gruvboxPurpleBright = text.Colors{text.FgHiMagenta}
	gruvboxAquaBright   = text.Colors{text.FgHiCyan}

	gruvboxBold = text.Colors{text.Bold}
)

// Theme - exported theme colors for consistent UI
var Theme = struct {
	Success   text.Colors
	Info      text.Colors
	Warning   text.Colors
	Error     text.Colors
	Heading   text.Colors
	Subtle    text.Colors
	Important text.Colors
	Accent    text.Colors

	Title       text.Colors
	Divider     text.Colors
	TableHeader text.Colors
	TableBorder text.Colors
	TableRow    text.Colors
	TableAltRow text.Colors
	Badge       text.Colors
	Code        text.Colors
}{
	Success:   gruvboxGreen,
	Info:      gruvboxBlue,
	Warning:   gruvboxYellow,
	Error:     gruvboxRed,
	Heading:   append(gruvboxAquaBright, text.Bold),
	Subtle:    gruvboxFgDark,
	Important: append(gruvboxPurpleBright, text.Bold),
	Accent:    gruvboxAqua,

	Title:       append(gruvboxAquaBright, text.Bold),
	Divider:     gruvboxFgDark,
	TableHeader: append(gruvboxBlueBright, text.Bold),
	TableBorder: gruvboxBlue,
	TableRow:    gruvboxFgLight,
	TableAltRow: text.Colors{text.FgWhite, text.Faint},
	Badge:       append(gruvboxYellowBright, text.Bold),
	Code:        gruvboxGreenBright,
}

// PrintHeading prints a formatted heading
func PrintHeading(title string) {
	fmt.Println(Theme.Heading.Sprint(title))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(Theme.Success.Sprint("✓ ") + message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Println(Theme.Info.Sprint("ℹ ") + message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println(Theme.Warning.Sprint("⚠ ") + message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(Theme.Error.Sprint("✗ ") + message)
}

// PrintKeyValue prints a key-value pair
func PrintKeyValue(key, value string) {
	fmt.Printf("%s: %s\n", gruvboxBold.Sprint(key), value)
}

// PrintKeyValueWithColor prints a key-value pair with colored value
func PrintKeyValueWithColor(key string, value string, colors text.Colors) {
	fmt.Printf("%s: %s\n", gruvboxBold.Sprint(key), colors.Sprint(value))
}

// PrintDivider prints a horizontal divider
func PrintDivider() {
	fmt.Println(Theme.Divider.Sprint("---------------------------------------------------"))
}

// PrintSubHeading prints a formatted sub-heading
func PrintSubHeading(title string) {
	fmt.Println(Theme.Info.Sprint(title))
}

// TableOptions defines options for table creation
type TableOptions struct {
	Title  string
	Output io.Writer
	// Pagination options
	EnablePagination bool
	PageSize         int
	CurrentPage      int
	TotalRows        int
}

// DefaultTableOptions returns default table options
func DefaultTableOptions() TableOptions {
	return TableOptions{
		Title:       "oplink",
		Output:      os.Stdout,
		PageSize:    10,
		CurrentPage: 1,
	}
}

// CreateTable creates a new table with default styling
func CreateTable(options ...TableOptions) table.Writer {
	opts := DefaultTableOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	t := table.NewWriter()
	t.SetOutputMirror(opts.Output)
	if opts.Title != "" {
		t.SetTitle(opts.Title)
	}

	customStyle := table.StyleDouble
	customStyle.Color.Header = Theme.TableHeader
	customStyle.Color.Border = Theme.TableBorder
	customStyle.Color.Row = Theme.TableRow
	customStyle.Color.RowAlternate = Theme.TableAltRow
	customStyle.Title.Colors = Theme.Title
	customStyle.Title.Align = text.AlignCenter

	customStyle.Options.DrawBorder = true
	customStyle.Options.SeparateColumns = true
	customStyle.Options.SeparateFooter = true
	customStyle.Options.SeparateHeader = true
	customStyle.Options.SeparateRows = false

	customStyle.Box.PaddingLeft = " "
	customStyle.Box.PaddingRight = " "

	t.SetStyle(customStyle)
	return t
}

// PageBounds returns the slice bounds of page within total rows, clamping page into range
func PageBounds(total, pageSize, page int) (start, end, clamped int) {
	if pageSize <= 0 {
		return 0, total, 1
	}
	totalPages := (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	} else if page > totalPages && totalPages > 0 {
		page = totalPages
	}

	start = (page - 1) * pageSize
	end = min(start+pageSize, total)
	return start, end, page
}

// PrintTable prints a table with headers and rows
func PrintTable(headers []string, rows [][]string, options ...TableOptions) {
	opts := DefaultTableOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	t := CreateTable(opts)

	headerRow := table.Row{}
	for _, header := range headers {
		headerRow = append(headerRow, header)
	}
	t.AppendHeader(headerRow)

	start, end := 0, len(rows)
	if opts.EnablePagination {
		if opts.TotalRows == 0 {
			opts.TotalRows = len(rows)
		}
		start, end, opts.CurrentPage = PageBounds(len(rows), opts.PageSize, opts.CurrentPage)
	}

	for i := start; i < end; i++ {
		tableRow := table.Row{}
		for _, cell := range rows[i] {
			tableRow = append(tableRow, cell)
		}
		t.AppendRow(tableRow)
	}

	configs := []table.ColumnConfig{}
	for i := range headers {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignCenter,
		})
	}
	t.SetColumnConfigs(configs)
	t.Render()

	if opts.EnablePagination {
		totalPages := (opts.TotalRows + opts.PageSize - 1) / opts.PageSize
		fmt.Fprintln(opts.Output, Theme.Subtle.Sprint(fmt.Sprintf("Page %d of %d", opts.CurrentPage, totalPages)))
	}
}

// PrintTreeList prints a tree-like list with parent-child relationships
func PrintTreeList(title string, items []string) {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)
	l.AppendItem(title)
	l.Indent()
	for _, item := range items {
		l.AppendItem(item)
	}
	l.UnIndent()

	fmt.Println(l.Render())
}

// CreateProgressWriter creates a progress writer for plain terminal output
func CreateProgressWriter(out io.Writer) progress.Writer {
	pw := progress.NewWriter()
	pw.SetAutoStop(false)
	pw.SetTrackerLength(25)
	pw.SetMessageLength(40)
	pw.SetNumTrackersExpected(1)
	pw.SetStyle(progress.StyleDefault)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(time.Millisecond * 100)
	pw.Style().Colors.Message = Theme.Info
	pw.Style().Colors.Percent = Theme.Important
	pw.Style().Colors.Time = Theme.Subtle
	pw.Style().Colors.Value = Theme.Success
	pw.Style().Options.PercentFormat = " %.1f%%"
	pw.SetOutputWriter(out)

	return pw
}

// PrintPaginatedTable prints a table with pagination and handles user input for navigation
func PrintPaginatedTable(headers []string, rows [][]string, pageSize int, title string) {
	currentPage := 1
	totalRows := len(rows)
	totalPages := (totalRows + pageSize - 1) / pageSize

	opts := DefaultTableOptions()
	opts.Title = title

	if totalRows == 0 {
		PrintTable(headers, rows, opts)
		fmt.Println(Theme.Subtle.Sprint("No records found."))
		return
	}

	if totalPages <= 1 {
		PrintTable(headers, rows, opts)
		return
	}

	var lastChoice string
	var invalidInput bool

	for {
		// Clear screen before printing the table
		fmt.Print("\033[H\033[2J")

		opts.EnablePagination = true
		opts.PageSize = pageSize
		opts.CurrentPage = currentPage
		opts.TotalRows = totalRows
		PrintTable(headers, rows, opts)

		fmt.Println()
		fmt.Println(Theme.Divider.Sprint("───────────────────────────────────────────"))
		fmt.Printf("%s %s   %s %s   %s %s   %s %s   %s %s\n",
			Theme.Badge.Sprint("f"), "first",
			Theme.Badge.Sprint("p"), "prev",
			Theme.Badge.Sprint("n"), "next",
			Theme.Badge.Sprint("l"), "last",
			Theme.Badge.Sprint("q"), "quit")

		if invalidInput {
			fmt.Println(Theme.Error.Sprint("Invalid choice. Please try again."))
			invalidInput = false
		}
		fmt.Print(Theme.Subtle.Sprint("Enter choice: "))

		var choice string
		_, _ = fmt.Scanln(&choice)

		// Empty input repeats the previous choice
		if choice == "" && lastChoice != "" {
			choice = lastChoice
		} else if choice != "" {
			lastChoice = choice
		}

		switch strings.ToLower(choice) {
		case "f", "first":
			currentPage = 1
		case "p", "prev", "previous":
			if currentPage > 1 {
				currentPage--
			}
		case "n", "next":
			if currentPage < totalPages {
				currentPage++
			}
		case "l", "last":
			currentPage = totalPages
		case "q", "quit", "exit":
			return
		default:
			var pageNum int
			if _, err := fmt.Sscanf(choice, "%d", &pageNum); err == nil && pageNum > 0 && pageNum <= totalPages {
				currentPage = pageNum
			} else {
				invalidInput = true
			}
		}
	}
}
