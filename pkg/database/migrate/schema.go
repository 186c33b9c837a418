// Package migrate holds the table definitions applied by database.Client.Migrate.
package migrate

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 255},
		{Name: "shop", Type: field.TypeString, Size: 255},
		{Name: "state", Type: field.TypeString, Size: 255, Default: ""},
		{Name: "is_online", Type: field.TypeBool, Default: false},
		{Name: "scope", Type: field.TypeString, Nullable: true, Size: 1024},
		{Name: "expires_at", Type: field.TypeTime, Nullable: true},
		{Name: "access_token", Type: field.TypeString, Size: 255},
		{Name: "user_id", Type: field.TypeInt64, Nullable: true},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "session_shop",
				Unique:  false,
				Columns: []*schema.Column{SessionsColumns[1]},
			},
		},
	}

	// ClickEventsColumns holds the columns for the "click_events" table.
	ClickEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "shop", Type: field.TypeString, Size: 255},
		{Name: "click_id", Type: field.TypeString, Size: 255},
		{Name: "user_id", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "product_id", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "product_handle", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "ip_address", Type: field.TypeString, Size: 255, Default: ""},
		{Name: "user_agent", Type: field.TypeString, Size: 1024, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ClickEventsTable holds the schema information for the "click_events" table.
	ClickEventsTable = &schema.Table{
		Name:       "click_events",
		Columns:    ClickEventsColumns,
		PrimaryKey: []*schema.Column{ClickEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "clickevent_shop_click_id",
				Unique:  true,
				Columns: []*schema.Column{ClickEventsColumns[1], ClickEventsColumns[2]},
			},
			{
				Name:    "clickevent_created_at",
				Unique:  false,
				Columns: []*schema.Column{ClickEventsColumns[8]},
			},
		},
	}

	// AttributedOrdersColumns holds the columns for the "attributed_orders" table.
	AttributedOrdersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "shop", Type: field.TypeString, Size: 255},
		{Name: "order_id", Type: field.TypeString, Size: 64},
		{Name: "order_name", Type: field.TypeString, Size: 255, Default: ""},
		{Name: "click_id", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "user_id", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "total_price", Type: field.TypeFloat64},
		{Name: "currency_code", Type: field.TypeString, Size: 3, Default: "USD"},
		{Name: "commission_amount", Type: field.TypeFloat64},
		{Name: "commission_rate", Type: field.TypeFloat64},
		{Name: "order_status", Type: field.TypeString, Size: 64, Default: "pending"},
		{Name: "commission_paid", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
	}
	// AttributedOrdersTable holds the schema information for the "attributed_orders" table.
	AttributedOrdersTable = &schema.Table{
		Name:       "attributed_orders",
		Columns:    AttributedOrdersColumns,
		PrimaryKey: []*schema.Column{AttributedOrdersColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "attributedorder_shop_order_id",
				Unique:  true,
				Columns: []*schema.Column{AttributedOrdersColumns[1], AttributedOrdersColumns[2]},
			},
			{
				Name:    "attributedorder_shop_created_at",
				Unique:  false,
				Columns: []*schema.Column{AttributedOrdersColumns[1], AttributedOrdersColumns[12]},
			},
		},
	}

	// MonthlyCommissionsColumns holds the columns for the "monthly_commissions" table.
	MonthlyCommissionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "shop", Type: field.TypeString, Size: 255},
		{Name: "month", Type: field.TypeString, Size: 7},
		{Name: "total_orders", Type: field.TypeInt, Default: 0},
		{Name: "total_sales", Type: field.TypeFloat64, Default: 0},
		{Name: "total_commission", Type: field.TypeFloat64, Default: 0},
		{Name: "is_paid", Type: field.TypeBool, Default: false},
		{Name: "paid_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// MonthlyCommissionsTable holds the schema information for the "monthly_commissions" table.
	MonthlyCommissionsTable = &schema.Table{
		Name:       "monthly_commissions",
		Columns:    MonthlyCommissionsColumns,
		PrimaryKey: []*schema.Column{MonthlyCommissionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "monthlycommission_shop_month",
				Unique:  true,
				Columns: []*schema.Column{MonthlyCommissionsColumns[1], MonthlyCommissionsColumns[2]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		SessionsTable,
		ClickEventsTable,
		AttributedOrdersTable,
		MonthlyCommissionsTable,
	}
)
