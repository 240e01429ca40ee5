package handlers

import (
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/matcher"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/statistics"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/response"
)

// Envelope wrappers for swagger documentation only; handlers build
// response.APIResponse directly.

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespJob struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Job               `json:"data"`
}

type RespJobs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Job             `json:"data"`
}

type RespScanJobs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.ScanResult        `json:"data"`
}

type RespHistory struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    []models.JobStatusHistory `json:"data"`
}

type RespVerification struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.Verification      `json:"data"`
}

type RespPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Payment           `json:"data"`
}

type RespPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Payment         `json:"data"`
}

type RespInitialize struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payment.InitializeResult `json:"data"`
}

type RespDispute struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Dispute           `json:"data"`
}

type RespDisputes struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Dispute         `json:"data"`
}

type RespCandidates struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []matcher.Candidate      `json:"data"`
}

type RespProfile struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.ArtisanProfile    `json:"data"`
}

type RespProfiles struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.ArtisanProfile  `json:"data"`
}

type RespIdentity struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.IdentityRecord    `json:"data"`
}

type RespRevealed struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    vault.Revealed           `json:"data"`
}

type RespSweep struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    sweeper.Report           `json:"data"`
}

type RespStatistics struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Response      `json:"data"`
}
