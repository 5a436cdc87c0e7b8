package service

import (
	"context"
	"testing"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactService_CRUDAndNotes(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewContactService(repository.NewContactRepository(db), nil)
	user := testutil.SeedUser(t, db, "Clerk", model.RoleStaff)
	ctx := context.Background()

	c, err := svc.Create(ctx, dto.CreateContactRequest{
		Name:    "Acme Textiles",
		Type:    model.ContactSupplier,
		Company: strPtr("Acme"),
		Tags:    []string{"fabric", " Fabric ", "", "zippers"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fabric", "zippers"}, c.Tags)
	assert.True(t, c.Active)

	_, err = svc.Create(ctx, dto.CreateContactRequest{Name: "Jane", Type: model.ContactWorker})
	require.NoError(t, err)

	suppliers, err := svc.List(ctx, dto.ContactFilter{Type: model.ContactSupplier})
	require.NoError(t, err)
	require.Len(t, suppliers.Contacts, 1)
	found, err := svc.List(ctx, dto.ContactFilter{Search: "acme"})
	require.NoError(t, err)
	assert.Len(t, found.Contacts, 1)

	updated, err := svc.Update(ctx, c.ID, dto.UpdateContactRequest{Tags: []string{"trims"}, Phone: strPtr(" 555 ")})
	require.NoError(t, err)
	assert.Equal(t, []string{"trims"}, updated.Tags)
	assert.Equal(t, "555", *updated.Phone)

	note, err := svc.AddNote(ctx, c.ID, user.ID, dto.CreateContactNoteRequest{Body: "Prefers email"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, note.CreatedBy)
	_, err = svc.AddNote(ctx, c.ID, user.ID, dto.CreateContactNoteRequest{Body: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	notes, err := svc.ListNotes(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	withNotes, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, withNotes.Notes, 1)

	require.NoError(t, svc.Delete(ctx, c.ID))
	var orphaned int64
	require.NoError(t, db.Model(&model.ContactNote{}).Where("contact_id = ?", c.ID).Count(&orphaned).Error)
	assert.Zero(t, orphaned, "notes go with the contact")

	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteNote(ctx, c.ID, note.ID), ErrNotFound)
}

func TestContactService_DeleteBlockedByOrders(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewContactService(repository.NewContactRepository(db), nil)
	user := testutil.SeedUser(t, db, "Clerk", model.RoleStaff)
	ctx := context.Background()

	c, err := svc.Create(ctx, dto.CreateContactRequest{Name: "Buyer", Type: model.ContactCustomer})
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Order{OrderNumber: "ORD-1", Status: model.OrderCreated, CustomerID: &c.ID, CreatedBy: user.ID}).Error)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), ErrConflict)
}
