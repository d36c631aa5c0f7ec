package domain

import "github.com/andy/invoicer/internal/history"

func scalars(names ...string) []history.Field {
	fields := make([]history.Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, history.Field{Name: n})
	}
	return fields
}

func relations(fields []history.Field, names ...string) []history.Field {
	for _, n := range names {
		fields = append(fields, history.Field{Name: n, Kind: history.Relation})
	}
	return fields
}

// HistoryDescriptors describes how each audited table is snapshotted.
// Settings and connexion logs are not audited.
func HistoryDescriptors() []history.Descriptor {
	users := scalars("id", "createdAt", "updatedAt", "firstname", "lastname", "email", "lastConnexionAt")
	users = append(users, history.Field{Name: "password", Excluded: true})

	return []history.Descriptor{
		{Table: TableUsers, Fields: users},
		{
			Table: TableClients,
			Fields: scalars("id", "createdAt", "updatedAt", "name", "firstname", "lastname",
				"email", "phoneNumber", "remark", "address", "addressNumber", "postalCode", "city", "archived"),
		},
		{
			Table:  TableServices,
			Fields: scalars("id", "createdAt", "updatedAt", "name", "description", "type", "archived"),
		},
		{
			Table: TableInvoices,
			Fields: relations(
				scalars("id", "createdAt", "updatedAt", "name", "number", "reference", "state", "archived", "dueAt"),
				"client"),
		},
		{
			Table: TableInvoiceLines,
			Fields: relations(
				scalars("id", "createdAt", "updatedAt", "quantity", "amount", "archived"),
				"service", "invoice"),
		},
		{
			Table: TableInvoiceLogs,
			Fields: relations(
				scalars("id", "createdAt", "updatedAt", "code", "details"),
				"invoice", "client"),
		},
		{
			Table:    TableSettings,
			Fields:   scalars("id", "createdAt", "updatedAt", "key", "value"),
			Disabled: true,
		},
		{
			Table:    TableConnexionLogs,
			Fields:   scalars("id", "createdAt", "updatedAt", "email", "ip", "userAgent", "failedAttempts", "blockedUntil"),
			Disabled: true,
		},
	}
}

// HistoryRegistry builds the registry used by the recorder
func HistoryRegistry() (*history.Registry, error) {
	return history.NewRegistry(HistoryDescriptors()...)
}
