package sqltemplate

// Built-in template text, used when the corresponding file under the
// templates directory is missing or unreadable. Kept byte-for-byte in
// sync with the sql-templates/ directory shipped with the service.
var defaultTemplateSQL = map[string]string{
	"order-query": `-- 订单查询报表
-- params: startTime, endTime, stationCodes, mobile, statuses, orderNumber
SELECT
    o.order_no AS '订单号',
    s.out_code AS '门店编码',
    s.store_name AS '门店名称',
    u.user_mobile AS '会员手机号',
    o.status AS '订单状态',
    o.order_type AS '订单类型',
    o.source_channel AS '来源渠道',
    o.total_amount AS '订单金额',
    o.pay_amount AS '实付金额',
    o.create_time AS '下单时间',
    o.pay_time AS '支付时间'
FROM t_order o
LEFT JOIN t_store s ON o.store_id = s.id
LEFT JOIN t_order_user u ON o.id = u.order_id
WHERE 1=1
{{filters}}
ORDER BY o.create_time DESC
LIMIT ? OFFSET ?`,

	"order-stats-query": `-- 订单状态统计
-- params: startTime, endTime, stationCodes, mobile, statuses, orderNumber
SELECT
    o.status AS '订单状态',
    COUNT(*) AS '订单数',
    SUM(o.pay_amount) AS '实付金额合计'
FROM t_order o
LEFT JOIN t_store s ON o.store_id = s.id
LEFT JOIN t_order_user u ON o.id = u.order_id
WHERE 1=1
{{filters}}
GROUP BY o.status
ORDER BY o.status`,

	"penetration-query": `-- 会员渗透率报表
-- params: startTime, endTime, stationCodes
SELECT
    s.out_code AS '门店编码',
    s.store_name AS '门店名称',
    COUNT(DISTINCT o.user_id) AS '下单会员数',
    (SELECT COUNT(DISTINCT o2.user_id)
       FROM t_order o2
       JOIN t_store st2 ON o2.store_id = st2.id
      WHERE 1=1
      {{total_filters}}) AS '全量会员数',
    CONCAT(ROUND(COUNT(DISTINCT o.user_id) * 100 /
        (SELECT COUNT(DISTINCT o2.user_id)
           FROM t_order o2
           JOIN t_store st2 ON o2.store_id = st2.id
          WHERE 1=1
          {{total_filters}}), 2), '%') AS '渗透率'
FROM t_order o
JOIN t_store s ON o.store_id = s.id
WHERE 1=1
{{filters}}
GROUP BY s.out_code, s.store_name
ORDER BY s.out_code
LIMIT ? OFFSET ?`,

	"penetration-query-count": `-- 会员渗透率报表行数
-- params: startTime, endTime, stationCodes
SELECT COUNT(*) AS total FROM (
    SELECT s.out_code
    FROM t_order o
    JOIN t_store s ON o.store_id = s.id
    WHERE 1=1
    {{filters}}
    GROUP BY s.out_code, s.store_name
) t`,

	"coupon-query": `-- 券核销明细报表
-- params: receiveStartTime, receiveEndTime, useStartTime, useEndTime, couponIds, activityId, barCode, mobile, stationCodes
SELECT
    c.coupon_code AS '券码',
    c.coupon_id AS '券ID',
    c.coupon_name AS '券名称',
    c.activity_id AS '活动ID',
    c.bar_code AS '商品条码',
    u.user_mobile AS '会员手机号',
    s.out_code AS '核销门店编码',
    s.store_name AS '核销门店名称',
    c.receive_time AS '领取时间',
    c.use_time AS '核销时间',
    c.status AS '券状态'
FROM t_coupon_record c
LEFT JOIN t_user u ON c.user_id = u.id
LEFT JOIN t_store s ON c.use_store_id = s.id
WHERE 1=1
{{filters}}
ORDER BY c.receive_time DESC
LIMIT ? OFFSET ?`,

	"support-query": `-- 帮扶门店业绩报表
-- params: startTime, endTime, partyCode, stationCodes
SELECT
    s.out_code AS '门店编码',
    s.store_name AS '门店名称',
    s.party_code AS '党建编码',
    COUNT(o.id) AS '订单数',
    SUM(o.pay_amount) AS '实付金额合计',
    COUNT(DISTINCT o.user_id) AS '下单会员数'
FROM t_order o
JOIN t_store s ON o.store_id = s.id
WHERE 1=1
{{filters}}
GROUP BY s.out_code, s.store_name, s.party_code
ORDER BY s.out_code
LIMIT ? OFFSET ?`,

	"support-query-count": `-- 帮扶门店业绩报表行数
-- params: startTime, endTime, partyCode, stationCodes
SELECT COUNT(*) AS total FROM (
    SELECT s.out_code
    FROM t_order o
    JOIN t_store s ON o.store_id = s.id
    WHERE 1=1
    {{filters}}
    GROUP BY s.out_code, s.store_name, s.party_code
) t`,

	"invitation-query": `-- 邀请注册报表
-- params: startTime, endTime, mobile, stationCodes
SELECT
    i.inviter_mobile AS '邀请人手机号',
    i.invitee_mobile AS '被邀请人手机号',
    s.out_code AS '归属门店编码',
    s.store_name AS '归属门店名称',
    i.register_time AS '注册时间',
    i.first_order_time AS '首单时间'
FROM t_invitation i
LEFT JOIN t_store s ON i.store_id = s.id
WHERE 1=1
{{filters}}
ORDER BY i.register_time DESC
LIMIT ? OFFSET ?`,

	"mall-user-query": `-- 商城会员日报
-- params: date, mobile
SELECT
    d.stat_date AS '统计日期',
    u.user_mobile AS '会员手机号',
    u.register_channel AS '注册渠道',
    d.order_count AS '当日订单数',
    d.pay_amount AS '当日实付金额',
    u.register_time AS '注册时间'
FROM t_mall_user_daily d
JOIN t_user u ON d.user_id = u.id
WHERE 1=1
{{filters}}
ORDER BY d.pay_amount DESC
LIMIT ? OFFSET ?`,

	"freight-activity-query": `-- 运费活动报表
-- params: activityId, startTime, endTime
SELECT
    f.activity_id AS '活动ID',
    f.activity_name AS '活动名称',
    o.order_no AS '订单号',
    o.freight_amount AS '运费金额',
    f.discount_amount AS '运费优惠金额',
    o.create_time AS '下单时间'
FROM t_freight_activity_order f
JOIN t_order o ON f.order_id = o.id
WHERE 1=1
{{filters}}
ORDER BY o.create_time DESC
LIMIT ? OFFSET ?`,
}
