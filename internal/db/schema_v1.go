package db

const pipelineSchemaV1 = `
CREATE TABLE IF NOT EXISTS agents (
    id            TEXT PRIMARY KEY,
    channel_name  TEXT NOT NULL,
    mission       TEXT NOT NULL,
    created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_created ON agents(created_at DESC);

CREATE TABLE IF NOT EXISTS agent_runs (
    id          TEXT PRIMARY KEY,
    agent_id    TEXT NOT NULL,
    task        TEXT NOT NULL,
    status      TEXT NOT NULL CHECK(status IN ('running', 'completed', 'error')),
    error       TEXT,
    plan        TEXT, -- JSON
    post        TEXT, -- JSON
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,

    FOREIGN KEY (agent_id) REFERENCES agents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_agent ON agent_runs(agent_id, created_at DESC);

CREATE TABLE IF NOT EXISTS posts (
    id            TEXT PRIMARY KEY,
    agent_id      TEXT NOT NULL,
    title         TEXT NOT NULL,
    payload       TEXT NOT NULL, -- JSON
    published_at  TEXT,
    created_at    TEXT NOT NULL,

    FOREIGN KEY (agent_id) REFERENCES agents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_posts_agent   ON posts(agent_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);

CREATE TABLE IF NOT EXISTS post_feedback (
    id          TEXT PRIMARY KEY,
    post_id     TEXT NOT NULL,
    signal      TEXT NOT NULL,
    meta        TEXT, -- JSON object
    created_at  TEXT NOT NULL,

    FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_feedback_post ON post_feedback(post_id);

CREATE TABLE IF NOT EXISTS post_comments (
    id          TEXT PRIMARY KEY,
    post_id     TEXT NOT NULL,
    body        TEXT NOT NULL,
    created_at  TEXT NOT NULL,

    FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_comments_post ON post_comments(post_id, created_at DESC);

CREATE TABLE IF NOT EXISTS agent_memory (
    agent_id    TEXT PRIMARY KEY,
    summary     TEXT NOT NULL, -- JSON object
    updated_at  TEXT NOT NULL,

    FOREIGN KEY (agent_id) REFERENCES agents(id) ON DELETE CASCADE
);
`

const webhooksSchemaV2 = `
CREATE TABLE IF NOT EXISTS webhooks (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    events      TEXT NOT NULL, -- JSON array
    secret      TEXT,
    created_at  TEXT NOT NULL,
    active      INTEGER DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_webhooks_active ON webhooks(active);
`
