package postgres

// schema is applied on startup when postgres.automigrate is set. The partial
// unique index on subscriptions is the store-level guard behind the
// orchestrator's duplicate-subscription pre-check: two racing subscribes for
// the same identity cannot both commit an active non-basic row.
const schema = `
CREATE TABLE IF NOT EXISTS plans (
    id            VARCHAR(64) PRIMARY KEY,
    name          TEXT        NOT NULL,
    slug          TEXT        NOT NULL UNIQUE,
    description   TEXT,
    amount        VARCHAR(50) NOT NULL,
    currency      VARCHAR(10) NOT NULL,
    billing_cycle VARCHAR(50) NOT NULL,
    psp_plan_id   TEXT,
    psp_price_id  TEXT,
    is_custom     BOOLEAN     NOT NULL DEFAULT FALSE,
    is_active     BOOLEAN     NOT NULL DEFAULT TRUE,
    metadata      JSONB,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by    TEXT        NOT NULL DEFAULT '',
    updated_by    TEXT        NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS plan_coupons (
    id             VARCHAR(64)  PRIMARY KEY,
    plan_id        VARCHAR(64)  REFERENCES plans (id),
    code           TEXT         NOT NULL UNIQUE,
    discount_type  VARCHAR(50)  NOT NULL,
    discount_value NUMERIC      NOT NULL,
    usage_limit    INTEGER,
    usage_count    INTEGER      NOT NULL DEFAULT 0,
    end_date       TIMESTAMPTZ,
    is_active      BOOLEAN      NOT NULL DEFAULT TRUE,
    metadata       JSONB,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    created_by     TEXT         NOT NULL DEFAULT '',
    updated_by     TEXT         NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_plan_coupons_plan_id ON plan_coupons (plan_id);
CREATE INDEX IF NOT EXISTS ix_plan_coupons_is_active ON plan_coupons (is_active);

CREATE TABLE IF NOT EXISTS subscriptions (
    id                  VARCHAR(64) PRIMARY KEY,
    user_id             TEXT        NOT NULL,
    org_id              TEXT,
    plan_id             VARCHAR(64) NOT NULL REFERENCES plans (id),
    start_date          BIGINT      NOT NULL,
    end_date            BIGINT,
    is_active           BOOLEAN     NOT NULL DEFAULT FALSE,
    is_trial            BOOLEAN     NOT NULL DEFAULT FALSE,
    is_basic            BOOLEAN     NOT NULL DEFAULT FALSE,
    cancel_at_cycle_end BOOLEAN     NOT NULL DEFAULT FALSE,
    billing_cycle       VARCHAR(50) NOT NULL,
    amount              VARCHAR(50) NOT NULL,
    currency            VARCHAR(50) NOT NULL,
    psp_name            VARCHAR(50) NOT NULL,
    psp_subscription_id VARCHAR(255),
    status              VARCHAR(50) NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by          TEXT        NOT NULL DEFAULT '',
    updated_by          TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_subscriptions_user_org ON subscriptions (user_id, org_id);
CREATE INDEX IF NOT EXISTS ix_subscriptions_psp_id ON subscriptions (psp_subscription_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_subscriptions_one_active_paid
    ON subscriptions (user_id, COALESCE(org_id, ''))
    WHERE is_active AND NOT is_basic;

CREATE TABLE IF NOT EXISTS customers (
    id          VARCHAR(64) PRIMARY KEY,
    customer_id TEXT,
    psp_name    VARCHAR(50) NOT NULL,
    user_id     TEXT        NOT NULL,
    org_id      TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by  TEXT        NOT NULL DEFAULT '',
    updated_by  TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_customers_user_org ON customers (user_id, org_id);

CREATE TABLE IF NOT EXISTS scheduled_downgrades (
    id           VARCHAR(64) PRIMARY KEY,
    user_id      TEXT        NOT NULL,
    org_id       TEXT,
    scheduled_at BIGINT      NOT NULL,
    status       VARCHAR(50) NOT NULL DEFAULT 'pending',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by   TEXT        NOT NULL DEFAULT '',
    updated_by   TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_scheduled_downgrades_user_org ON scheduled_downgrades (user_id, org_id);
CREATE INDEX IF NOT EXISTS ix_scheduled_downgrades_status ON scheduled_downgrades (status);

CREATE TABLE IF NOT EXISTS rules (
    id              VARCHAR(64) PRIMARY KEY,
    name            TEXT        NOT NULL,
    description     TEXT,
    scope           VARCHAR(50) NOT NULL,
    enabled         BOOLEAN     NOT NULL DEFAULT TRUE,
    rule_slug       TEXT        NOT NULL,
    rule_class_name TEXT        NOT NULL,
    service_slug    VARCHAR(64) NOT NULL,
    condition_data  JSONB,
    metadata        JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by      TEXT        NOT NULL DEFAULT '',
    updated_by      TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_rules_scope ON rules (scope);

CREATE TABLE IF NOT EXISTS plan_rules (
    id         VARCHAR(64) PRIMARY KEY,
    plan_id    VARCHAR(64) NOT NULL REFERENCES plans (id),
    rule_id    VARCHAR(64) NOT NULL REFERENCES rules (id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by TEXT        NOT NULL DEFAULT '',
    updated_by TEXT        NOT NULL DEFAULT '',
    CONSTRAINT uq_plan_rule UNIQUE (plan_id, rule_id)
);
CREATE INDEX IF NOT EXISTS ix_plan_rules_plan_id ON plan_rules (plan_id);
CREATE INDEX IF NOT EXISTS ix_plan_rules_rule_id ON plan_rules (rule_id);

CREATE TABLE IF NOT EXISTS invoices (
    id              VARCHAR(64) PRIMARY KEY,
    subscription_id VARCHAR(64) NOT NULL REFERENCES subscriptions (id),
    psp_invoice_id  TEXT,
    transaction_id  TEXT,
    user_id         TEXT        NOT NULL,
    org_id          TEXT,
    amount          VARCHAR(50) NOT NULL,
    currency        VARCHAR(50) NOT NULL,
    status          VARCHAR(50) NOT NULL,
    next_due_date   BIGINT,
    short_url       TEXT,
    psp_name        VARCHAR(50) NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by      TEXT        NOT NULL DEFAULT '',
    updated_by      TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_invoices_subscription_id ON invoices (subscription_id);
CREATE INDEX IF NOT EXISTS ix_invoices_psp_invoice_id ON invoices (psp_invoice_id);

CREATE TABLE IF NOT EXISTS payments (
    id              VARCHAR(64) PRIMARY KEY,
    subscription_id VARCHAR(64) NOT NULL REFERENCES subscriptions (id),
    user_id         TEXT        NOT NULL,
    org_id          TEXT,
    payment_date    BIGINT      NOT NULL,
    amount          VARCHAR(50) NOT NULL,
    currency        VARCHAR(50) NOT NULL,
    psp_payment_id  VARCHAR(64) NOT NULL,
    psp_name        VARCHAR(50) NOT NULL,
    status          VARCHAR(50) NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by      TEXT        NOT NULL DEFAULT '',
    updated_by      TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ix_payments_subscription_id ON payments (subscription_id);
CREATE INDEX IF NOT EXISTS ix_payments_user_org ON payments (user_id, org_id);
`
