package model

import "github.com/TakashiAihara/preppin-sub000/internal/enums"

// Inventory returns the household/organization inventory model.
func Inventory() *Schema {
	s, err := NewSchema(enums.Domain(),
		user(),
		session(),
		organization(),
		organizationMember(),
		organizationInvitation(),
		inventoryItem(),
		consumptionLog(),
		activityLog(),
		passwordResetToken(),
		emailVerificationToken(),
	)
	if err != nil {
		panic(err)
	}
	return s
}

func user() *Entity {
	return &Entity{
		Name: "User",
		Fields: []Field{
			ID(),
			String("email").AsUnique(),
			String("displayName"),
			String("profileImage").Null(),
			String("passwordHash").Null(),
			Bool("isEmailVerified").WithDefault(false),
			Bool("isActive").WithDefault(true),
			DateTime("lastLoginAt").Null(),
			EnumField("providers", "AuthProvider").AsList(),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			HasMany("sessions", "Session", "SessionUser"),
			HasMany("memberships", "OrganizationMember", "MemberUser"),
			HasMany("createdOrganizations", "Organization", "OrganizationCreator"),
			HasMany("updatedOrganizations", "Organization", "OrganizationUpdater"),
			HasMany("createdItems", "InventoryItem", "ItemCreator"),
			HasMany("updatedItems", "InventoryItem", "ItemUpdater"),
			HasMany("consumptionLogs", "ConsumptionLog", "ConsumptionUser"),
			HasMany("activityLogs", "ActivityLog", "ActivityUser"),
			HasMany("sentInvitations", "OrganizationInvitation", "InvitationInviter"),
			HasMany("passwordResetTokens", "PasswordResetToken", "PasswordResetUser"),
			HasMany("emailVerificationTokens", "EmailVerificationToken", "EmailVerificationUser"),
		},
	}
}

func session() *Entity {
	return &Entity{
		Name: "Session",
		Fields: []Field{
			ID(),
			String("userId"),
			String("token").AsUnique(),
			String("refreshToken").AsUnique(),
			DateTime("expiresAt"),
			DateTime("refreshExpiresAt"),
			String("ipAddress").Null(),
			String("userAgent").Null(),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			BelongsTo("user", "User", "SessionUser", "userId"),
		},
	}
}

func organization() *Entity {
	return &Entity{
		Name: "Organization",
		Fields: []Field{
			ID(),
			String("name"),
			String("description").Null(),
			EnumField("privacy", "OrganizationPrivacy").WithDefault("PRIVATE"),
			String("inviteCode").Null().AsUnique(),
			DateTime("inviteCodeExpiresAt").Null(),
			Json("settings"),
			String("createdById"),
			String("updatedById"),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			BelongsTo("creator", "User", "OrganizationCreator", "createdById"),
			BelongsTo("updater", "User", "OrganizationUpdater", "updatedById"),
			HasMany("members", "OrganizationMember", "MemberOrganization"),
			HasMany("invitations", "OrganizationInvitation", "InvitationOrganization"),
			HasMany("inventoryItems", "InventoryItem", "ItemOrganization"),
			HasMany("consumptionLogs", "ConsumptionLog", "ConsumptionOrganization"),
			HasMany("activityLogs", "ActivityLog", "ActivityOrganization"),
		},
	}
}

func organizationMember() *Entity {
	return &Entity{
		Name: "OrganizationMember",
		Fields: []Field{
			ID(),
			String("organizationId"),
			String("userId"),
			EnumField("role", "UserRole").WithDefault("VIEWER"),
			DateTime("joinedAt").DefaultNow(),
			String("invitedBy").Null(),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			BelongsTo("organization", "Organization", "MemberOrganization", "organizationId"),
			BelongsTo("user", "User", "MemberUser", "userId"),
		},
		CompoundUniques: [][]string{{"organizationId", "userId"}},
	}
}

func organizationInvitation() *Entity {
	return &Entity{
		Name: "OrganizationInvitation",
		Fields: []Field{
			ID(),
			String("organizationId"),
			String("email"),
			EnumField("role", "UserRole").WithDefault("VIEWER"),
			String("token").AsUnique(),
			EnumField("status", "InvitationStatus").WithDefault("PENDING"),
			String("invitedById"),
			DateTime("expiresAt"),
			DateTime("acceptedAt").Null(),
			DateTime("rejectedAt").Null(),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			BelongsTo("organization", "Organization", "InvitationOrganization", "organizationId"),
			BelongsTo("inviter", "User", "InvitationInviter", "invitedById"),
		},
	}
}

func inventoryItem() *Entity {
	return &Entity{
		Name: "InventoryItem",
		Fields: []Field{
			ID(),
			String("organizationId"),
			String("name"),
			String("description").Null(),
			EnumField("category", "ItemCategory").WithDefault("OTHER"),
			Float("quantity"),
			Float("minQuantity").Null(),
			String("unit").Null(),
			EnumField("expiryType", "ExpiryType").WithDefault("EXPIRY"),
			DateTime("expiryDate").Null(),
			DateTime("bestBeforeDate").Null(),
			DateTime("purchaseDate").Null(),
			Json("price").Null(),
			String("location").Null(),
			String("notes").Null(),
			String("tags").AsList(),
			String("images").AsList(),
			String("createdById"),
			String("updatedById"),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			BelongsTo("organization", "Organization", "ItemOrganization", "organizationId"),
			BelongsTo("creator", "User", "ItemCreator", "createdById"),
			BelongsTo("updater", "User", "ItemUpdater", "updatedById"),
			HasMany("consumptionLogs", "ConsumptionLog", "ConsumptionItem"),
		},
	}
}

func consumptionLog() *Entity {
	return &Entity{
		Name: "ConsumptionLog",
		Fields: []Field{
			ID(),
			String("itemId"),
			String("organizationId"),
			Float("quantity"),
			EnumField("reason", "ConsumptionReason").WithDefault("USED"),
			String("notes").Null(),
			String("consumedBy"),
			DateTime("consumedAt").DefaultNow(),
			CreatedAt(),
			UpdatedAt(),
		},
		Relations: []Relation{
			BelongsTo("item", "InventoryItem", "ConsumptionItem", "itemId"),
			BelongsTo("organization", "Organization", "ConsumptionOrganization", "organizationId"),
			BelongsTo("user", "User", "ConsumptionUser", "consumedBy"),
		},
	}
}

func activityLog() *Entity {
	return &Entity{
		Name: "ActivityLog",
		Fields: []Field{
			ID(),
			String("organizationId").Null(),
			String("userId"),
			EnumField("action", "ActivityAction"),
			String("entityType"),
			String("entityId"),
			Json("metadata").Null(),
			String("ipAddress").Null(),
			String("userAgent").Null(),
			CreatedAt(),
		},
		Relations: []Relation{
			BelongsTo("organization", "Organization", "ActivityOrganization", "organizationId").Optional(),
			BelongsTo("user", "User", "ActivityUser", "userId"),
		},
	}
}

func passwordResetToken() *Entity {
	return &Entity{
		Name: "PasswordResetToken",
		Fields: []Field{
			ID(),
			String("userId"),
			String("token").AsUnique(),
			DateTime("expiresAt"),
			DateTime("usedAt").Null(),
			CreatedAt(),
		},
		Relations: []Relation{
			BelongsTo("user", "User", "PasswordResetUser", "userId"),
		},
	}
}

func emailVerificationToken() *Entity {
	return &Entity{
		Name: "EmailVerificationToken",
		Fields: []Field{
			ID(),
			String("userId"),
			String("token").AsUnique(),
			DateTime("expiresAt"),
			DateTime("verifiedAt").Null(),
			CreatedAt(),
		},
		Relations: []Relation{
			BelongsTo("user", "User", "EmailVerificationUser", "userId"),
		},
	}
}
