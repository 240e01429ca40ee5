package vault_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/servicetest"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
)

func newVault(t *testing.T) (*servicetest.Env, *vault.Service) {
	env := servicetest.NewEnv(t)
	svc, err := vault.New(env.DB, env.Log, env.Config)
	require.NoError(t, err)
	return env, svc
}

func TestSubmitIdentityStoresNoPlaintext(t *testing.T) {
	env, svc := newVault(t)
	rec, err := svc.SubmitIdentity(context.Background(), vault.SubmitIdentityRequest{
		FullName: "Chiamaka Obi", NIN: "12345678901", SourceIP: "192.0.2.4",
	})
	require.NoError(t, err)
	require.Equal(t, "*******8901", rec.NINMasked)

	var stored models.IdentityRecord
	require.NoError(t, env.DB.Where("id = ?", rec.ID).First(&stored).Error)
	require.NotContains(t, stored.NINEncrypted, "12345678901")
	require.Equal(t, "*******8901", stored.NINMasked)
	require.Nil(t, stored.Phone)

	out, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NotContains(t, string(out), "nin_encrypted")

	for _, bad := range []string{"", "1234", "1234567890a", "123456789012"} {
		_, err := svc.SubmitIdentity(context.Background(), vault.SubmitIdentityRequest{FullName: "X", NIN: bad})
		require.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}

func TestRevealAuditsBeforeReturning(t *testing.T) {
	env, svc := newVault(t)
	ctx := context.Background()
	rec, err := svc.SubmitIdentity(ctx, vault.SubmitIdentityRequest{FullName: "Chiamaka Obi", NIN: "12345678901"})
	require.NoError(t, err)

	_, err = svc.Reveal(ctx, servicetest.Customer, vault.RevealRequest{RecordID: rec.ID, Justification: "kyc"})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Reveal(ctx, servicetest.Admin, vault.RevealRequest{RecordID: rec.ID, Justification: "  "})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Reveal(ctx, servicetest.Admin, vault.RevealRequest{RecordID: "missing", Justification: "kyc"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	var audits int64
	require.NoError(t, env.DB.Model(&models.AdminAuditLog{}).Count(&audits).Error)
	require.Zero(t, audits)

	got, err := svc.Reveal(ctx, servicetest.Admin, vault.RevealRequest{RecordID: rec.ID, Justification: "fraud review #42", SourceIP: "10.1.1.1"})
	require.NoError(t, err)
	require.Equal(t, "12345678901", got.NIN)

	var logs []*models.AdminAuditLog
	require.NoError(t, env.DB.Where("target_id = ?", rec.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, models.AuditActionRevealNIN, logs[0].Action)
	require.Equal(t, servicetest.Admin.ID, logs[0].AdminID)
	require.Equal(t, "10.1.1.1", logs[0].SourceIP)
	var details map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Details, &details))
	require.Equal(t, "fraud review #42", details["justification"])
	require.NotEmpty(t, details["timestamp"])
	require.NotContains(t, string(logs[0].Details), "12345678901")
}

func TestRevealWithoutAuditTableReturnsNothing(t *testing.T) {
	env, svc := newVault(t)
	ctx := context.Background()
	rec, err := svc.SubmitIdentity(ctx, vault.SubmitIdentityRequest{FullName: "Chiamaka Obi", NIN: "12345678901"})
	require.NoError(t, err)

	require.NoError(t, env.DB.Migrator().DropTable(&models.AdminAuditLog{}))
	got, err := svc.Reveal(ctx, servicetest.Admin, vault.RevealRequest{RecordID: rec.ID, Justification: "kyc"})
	require.Error(t, err)
	require.Nil(t, got)
	require.NotContains(t, err.Error(), "12345678901")
}

func TestRevealCorruptCiphertext(t *testing.T) {
	env, svc := newVault(t)
	ctx := context.Background()
	rec, err := svc.SubmitIdentity(ctx, vault.SubmitIdentityRequest{FullName: "Chiamaka Obi", NIN: "12345678901"})
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&models.IdentityRecord{}).Where("id = ?", rec.ID).Update("nin_encrypted", "v1:AAAA").Error)

	_, err = svc.Reveal(ctx, servicetest.Admin, vault.RevealRequest{RecordID: rec.ID, Justification: "kyc"})
	require.Error(t, err)
	require.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	require.Equal(t, "decryption failed", apperr.PublicMessage(err))
}
