package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS operators (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'OPERADOR',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS manifests (
    id          BIGSERIAL PRIMARY KEY,
    file_name   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'DRAFT',
    total_lines INTEGER NOT NULL DEFAULT 0,
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pallets (
    id          BIGSERIAL PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    location    TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'OPEN',
    locked_by   TEXT,
    locked_at   TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_lines (
    id            BIGSERIAL PRIMARY KEY,
    pallet_code   TEXT NOT NULL REFERENCES pallets(code),
    sku           TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    qty_initial   NUMERIC(18,4) NOT NULL DEFAULT 0,
    qty_available NUMERIC(18,4) NOT NULL DEFAULT 0,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(pallet_code, sku),
    CHECK (qty_available >= 0 AND qty_available <= qty_initial)
);

CREATE TABLE IF NOT EXISTS demand_lines (
    id            BIGSERIAL PRIMARY KEY,
    manifest_id   BIGINT NOT NULL REFERENCES manifests(id),
    shipment      TEXT NOT NULL DEFAULT '',
    pallet_code   TEXT NOT NULL,
    location      TEXT NOT NULL DEFAULT '',
    sku           TEXT NOT NULL,
    barcode       TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    qty_total     NUMERIC(18,4) NOT NULL DEFAULT 0,
    destination   TEXT NOT NULL,
    truck         TEXT NOT NULL DEFAULT '',
    qty_to_send   NUMERIC(18,4) NOT NULL DEFAULT 0,
    qty_confirmed NUMERIC(18,4) NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'PENDING',
    done_at       TIMESTAMPTZ,
    done_by       TEXT,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (qty_confirmed >= 0 AND qty_confirmed <= qty_to_send)
);
CREATE INDEX IF NOT EXISTS idx_demand_pallet_sku ON demand_lines(pallet_code, sku);
CREATE INDEX IF NOT EXISTS idx_demand_barcode ON demand_lines(pallet_code, barcode);
CREATE INDEX IF NOT EXISTS idx_demand_manifest ON demand_lines(manifest_id);

CREATE TABLE IF NOT EXISTS containers (
    id            BIGSERIAL PRIMARY KEY,
    code          TEXT NOT NULL UNIQUE,
    manifest_id   BIGINT NOT NULL REFERENCES manifests(id),
    destination   TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'OPEN',
    type          TEXT NOT NULL DEFAULT 'NORMAL',
    created_by    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    closed_by     TEXT,
    closed_at     TIMESTAMPTZ,
    dispatched_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_containers_one_open
    ON containers(manifest_id, destination) WHERE status = 'OPEN' AND type = 'NORMAL';
CREATE INDEX IF NOT EXISTS idx_containers_manifest ON containers(manifest_id);

CREATE TABLE IF NOT EXISTS container_lines (
    id             BIGSERIAL PRIMARY KEY,
    container_id   BIGINT NOT NULL REFERENCES containers(id),
    pallet_code    TEXT NOT NULL,
    sku            TEXT NOT NULL,
    qty            NUMERIC(18,4) NOT NULL,
    demand_line_id BIGINT REFERENCES demand_lines(id),
    created_by     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_container_lines_container ON container_lines(container_id);

CREATE TABLE IF NOT EXISTS audit_events (
    id          BIGSERIAL PRIMARY KEY,
    type        TEXT NOT NULL,
    pallet_code TEXT NOT NULL DEFAULT '',
    sku         TEXT NOT NULL DEFAULT '',
    destination TEXT NOT NULL DEFAULT '',
    qty         NUMERIC(18,4),
    actor       TEXT NOT NULL DEFAULT '',
    raw_code    TEXT NOT NULL DEFAULT '',
    note        TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_pallet ON audit_events(pallet_code);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at);
`
