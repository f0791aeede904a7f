package ui

import (
	"fmt"
	"strings"

	"funlight/internal/model"
	"funlight/internal/progress"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(m.viewForm())
	if m.notice != "" {
		b.WriteString("\n" + m.styles.Warning.Render(m.notice) + "\n")
	}
	if m.job != nil {
		b.WriteString("\n")
		b.WriteString(m.viewJob(m.job))
		b.WriteString("\n")
	}
	if s := m.viewSummary(); s != "" {
		b.WriteString("\n" + s)
	}
	return b.String()
}

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("Funlight Converter")
	sub := m.styles.Subtitle.Render("tab: next field • ←/→: change format/quality • enter/ctrl+s: start • esc: quit")
	return title + "\n" + sub
}

func (m Model) label(field int, text string) string {
	if m.form.focus == field {
		return m.styles.Focused.Render(text)
	}
	return m.styles.Label.Render(text)
}

func (m Model) viewForm() string {
	f := m.form
	kinds := make([]string, 0, len(model.Kinds))
	for i, k := range model.Kinds {
		if i == f.kindIdx {
			kinds = append(kinds, m.styles.Selector.Bold(true).Render("["+k.Label()+"]"))
		} else {
			kinds = append(kinds, m.styles.Faint.Render(k.Label()))
		}
	}

	quality := m.styles.Faint.Render("lossless")
	if q := f.quality(); q != "" {
		quality = m.styles.Selector.Render("‹ " + model.QualityLabel(f.kind(), q) + " ›")
	}

	button := m.styles.Button.Render("Start")
	switch {
	case m.running():
		button = m.styles.ButtonOff.Render("Converting...")
	case f.focus == fieldButton:
		button = m.styles.ButtonOn.Render("Start")
	}

	rows := []string{
		m.label(fieldURL, "URL") + f.url.View(),
		m.label(fieldFormat, "Format") + strings.Join(kinds, " "),
		m.label(fieldQuality, "Quality") + quality,
		m.label(fieldStart, "Start") + f.start.View(),
		m.label(fieldEnd, "End") + f.end.View(),
		m.label(fieldOutDir, "Save to") + f.outDir.View(),
		"",
		button,
	}
	return m.styles.Box.Render(strings.Join(rows, "\n"))
}

func (m Model) viewJob(js *jobState) string {
	stageStyle := m.styles.JobInfo
	switch js.stage {
	case progress.StageDeps, progress.StageMetadata:
		stageStyle = m.styles.StageMeta
	case progress.StageDownloading:
		stageStyle = m.styles.StageDL
	case progress.StageConverting:
		stageStyle = m.styles.StageConv
	case progress.StageTrimming:
		stageStyle = m.styles.StageTrim
	case progress.StageCleanup:
		stageStyle = m.styles.StageClean
	case progress.StageCompleted:
		stageStyle = m.styles.Success
	case progress.StageError:
		stageStyle = m.styles.Error
	}

	left := m.styles.JobTitle.Render(truncate(js.url, 48))
	stage := stageStyle.Render(string(js.stage))

	var right string
	switch {
	case js.done && js.err == "":
		right = m.styles.Success.Render("✓ done")
	case js.err != "":
		right = m.styles.Error.Render("✗ error")
	case js.percent >= 0 && js.percent <= 100:
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
		if js.speed != "" {
			right += " " + m.styles.Faint.Render(js.speed)
		}
	default:
		right = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("working")
	}

	info := js.status
	if js.done && js.err == "" && js.outputPath != "" {
		info = savedMessage(js.outputPath, js.bytes)
	}
	line1 := fmt.Sprintf("%s  %s", left, stage)
	line2 := m.styles.JobInfo.Render(info)
	if js.err != "" {
		line2 = m.styles.Error.Render(info)
	}
	return m.styles.Box.Render(line1 + "\n" + right + "\n" + line2)
}

func (m Model) viewSummary() string {
	if len(m.completed) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("✓ Completed Files:"))
	b.WriteString("\n")
	for _, path := range m.completed {
		b.WriteString(m.styles.Success.Render("  • " + path))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
