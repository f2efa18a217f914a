package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/repository"
)

func sampleMetrics() *repository.GlobalMetrics {
	return &repository.GlobalMetrics{
		Total:  12,
		Open:   8,
		Closed: 4,
		ByStatus: []repository.StatusCount{
			{Status: domain.TicketStatusOpen, Count: 5},
			{Status: domain.TicketStatusInProgress, Count: 3},
			{Status: domain.TicketStatusClosed, Count: 4},
		},
	}
}

func TestTopUsersRanksByVolume(t *testing.T) {
	rows := []repository.UserTicketCount{
		{UserName: "Ana", Created: 1},
		{UserName: "Bruno", Created: 1, Assigned: 1},
		{UserName: "Carla"},
		{UserName: "Zoe", Created: 60, Assigned: 40},
	}

	top := topUsers(rows, 10)
	require.Len(t, top, 3)
	assert.Equal(t, "Zoe", top[0].UserName)
	assert.Equal(t, "Bruno", top[1].UserName)
	assert.Equal(t, "Ana", top[2].UserName)
}

func TestTopUsersLimitsToBusiest(t *testing.T) {
	rows := make([]repository.UserTicketCount, 0, 11)
	for i := 0; i < 10; i++ {
		rows = append(rows, repository.UserTicketCount{
			UserName: fmt.Sprintf("Usuario %02d", i),
			Created:  1,
		})
	}
	// alphabetically last, but by far the busiest
	rows = append(rows, repository.UserTicketCount{UserName: "Zoe", Created: 100})

	top := topUsers(rows, 10)
	require.Len(t, top, 10)
	assert.Equal(t, "Zoe", top[0].UserName)
}

func TestTopUsersKeepsNameOrderOnTies(t *testing.T) {
	rows := []repository.UserTicketCount{
		{UserName: "Ana", Created: 2},
		{UserName: "Bruno", Created: 2},
	}

	top := topUsers(rows, 10)
	require.Len(t, top, 2)
	assert.Equal(t, "Ana", top[0].UserName)
	assert.Equal(t, "Bruno", top[1].UserName)
}

func countEmbeddedImages(pdf []byte) int {
	return bytes.Count(pdf, []byte("/Subtype /Image"))
}

func TestUserReportEmbedsPieAndBars(t *testing.T) {
	rows := []repository.UserTicketCount{
		{UserName: "Ana", Department: "Soporte Técnico", Created: 4, Assigned: 2},
	}

	pdf, err := BuildUserReport(sampleMetrics(), rows, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, countEmbeddedImages(pdf))
}

func TestDepartmentReportEmbedsPieAndBars(t *testing.T) {
	rows := []repository.DepartmentTicketCount{
		{Department: "Soporte Técnico", Count: 7},
		{Department: "Sin Departamento", Count: 5},
	}

	pdf, err := BuildDepartmentReport(sampleMetrics(), rows, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, countEmbeddedImages(pdf))
}

func TestReportsSkipChartsWithoutData(t *testing.T) {
	empty := &repository.GlobalMetrics{}

	pdf, err := BuildUserReport(empty, nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, countEmbeddedImages(pdf))

	pdf, err = BuildDepartmentReport(empty, nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, countEmbeddedImages(pdf))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	got := truncate("Comunicación y Difusión", 12)
	assert.Equal(t, "Comunicación...", got)
	assert.Equal(t, "Redes", truncate("Redes", 12))
}
